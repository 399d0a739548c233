package store

import (
	"context"
	"fmt"
	"strings"

	"feed-ingest/pkg/db"
	"feed-ingest/pkg/domain"
)

// remoteStore adapts a database article table to Store
type remoteStore struct {
	table  db.ArticleStorage
	close  func() error
	target string
}

func (s *remoteStore) Load(ctx context.Context) (*domain.Articles, error) {
	articles, err := s.table.LoadArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.target, err)
	}
	return articles, nil
}

func (s *remoteStore) Save(ctx context.Context, articles *domain.Articles) error {
	if err := s.table.SaveArticles(ctx, articles); err != nil {
		return fmt.Errorf("save %s: %w", s.target, err)
	}
	return nil
}

func (s *remoteStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func (s *remoteStore) String() string { return s.target }

func openMongo(ctx context.Context, uri string, opts Options) (Store, error) {
	database := opts.MongoDatabase
	if database == "" {
		database = "feedingest"
	}
	collection := opts.MongoCollection
	if collection == "" {
		collection = "articles"
	}

	client := db.NewClient(uri, database, collection)
	if err := client.Connect(ctx); err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	return &remoteStore{
		table:  client,
		close:  func() error { return client.Close(context.Background()) },
		target: fmt.Sprintf("%s [%s.%s]", redact(uri), database, collection),
	}, nil
}

func openPostgres(ctx context.Context, dsn string, opts Options) (Store, error) {
	client := db.NewPostgresClient(db.PostgresConfig{DSN: dsn, MaxConns: opts.MaxConns})
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	table, err := client.Articles(ctx, opts.SQLTable)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &remoteStore{table: table, close: client.Close, target: redact(dsn)}, nil
}

// openSupabase handles "supabase://<table>"; credentials come from opts.Supabase
func openSupabase(ctx context.Context, destination string, opts Options) (Store, error) {
	tableName := strings.Trim(strings.TrimSpace(destination)[len("supabase://"):], "/")
	if tableName == "" {
		tableName = opts.SQLTable
	}

	cfg := opts.Supabase
	if cfg.MaxConns == 0 {
		cfg.MaxConns = opts.MaxConns
	}
	client := db.NewSupabaseClient(cfg)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	table, err := client.Articles(ctx, tableName)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if tableName == "" {
		tableName = db.DefaultArticleTable
	}
	return &remoteStore{
		table:  table,
		close:  client.Close,
		target: fmt.Sprintf("supabase://%s (%s)", tableName, client.Mode()),
	}, nil
}
