package db

import (
	"context"
	"database/sql"

	"feed-ingest/pkg/domain"
)

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to back an ArticleTable.
type DBProvider interface {
	DB() *sql.DB
}

// ArticleStorage is a backend that keeps the article mapping keyed by title.
// SaveArticles only inserts titles that are not stored yet.
type ArticleStorage interface {
	LoadArticles(ctx context.Context) (*domain.Articles, error)
	SaveArticles(ctx context.Context, articles *domain.Articles) error
}
