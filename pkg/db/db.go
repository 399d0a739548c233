package db

import (
	"context"
	"fmt"

	"feed-ingest/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps the MongoDB client and the article collection
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	collection  *mongo.Collection
}

// articleDocument is the stored shape of one article.
// seq records first-seen order so the mapping can be rebuilt in order.
type articleDocument struct {
	Seq            int64  `bson:"seq"`
	Title          string `bson:"title"`
	domain.Article `bson:",inline"`
}

// NewClient creates a new database client
func NewClient(connectionString, databaseName, collectionName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &Client{}
	}

	database := mongoClient.Database(databaseName)
	collection := database.Collection(collectionName)

	return &Client{
		mongoClient: mongoClient,
		database:    database,
		collection:  collection,
	}
}

// Connect establishes connection to MongoDB and ensures the unique title index
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	if err := c.mongoClient.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	_, err := c.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create title index: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// LoadArticles reads every stored article ordered by first-seen sequence
func (c *Client) LoadArticles(ctx context.Context) (*domain.Articles, error) {
	if c.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := c.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer cursor.Close(ctx)

	articles := domain.NewArticles()
	for cursor.Next(ctx) {
		var doc articleDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode article: %w", err)
		}
		articles.Add(doc.Title, doc.Article)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return articles, nil
}

// SaveArticles inserts every article whose title is not stored yet.
// Stored documents are left untouched.
func (c *Client) SaveArticles(ctx context.Context, articles *domain.Articles) error {
	if c.collection == nil {
		return fmt.Errorf("collection not initialized")
	}
	if articles.Len() == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, articles.Len())
	var seq int64
	articles.Each(func(title string, article domain.Article) bool {
		doc := articleDocument{Seq: seq, Title: title, Article: article}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"title": title}).
			SetUpdate(bson.M{"$setOnInsert": doc}).
			SetUpsert(true))
		seq++
		return true
	})

	if _, err := c.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to save articles: %w", err)
	}
	return nil
}
