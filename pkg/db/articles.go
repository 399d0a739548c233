package db

import (
	"context"
	"fmt"
	"regexp"

	"feed-ingest/pkg/domain"
)

// DefaultArticleTable is the table used when none is configured
const DefaultArticleTable = "feed_article"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ArticleTable stores the article mapping in a SQL table keyed by title.
// seq keeps first-seen order.
type ArticleTable struct {
	provider DBProvider
	table    string
}

// NewArticleTable validates the table name and returns a table bound to provider
func NewArticleTable(provider DBProvider, table string) (*ArticleTable, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is required")
	}
	if table == "" {
		table = DefaultArticleTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ArticleTable{provider: provider, table: table}, nil
}

// EnsureSchema creates the table if it does not exist
func (t *ArticleTable) EnsureSchema(ctx context.Context) error {
	db := t.provider.DB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq BIGINT NOT NULL,
	title TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	published_date TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT ''
)`, t.table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", t.table, err)
	}
	return nil
}

// LoadArticles reads all rows ordered by seq
func (t *ArticleTable) LoadArticles(ctx context.Context) (*domain.Articles, error) {
	db := t.provider.DB()
	if db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT title, url, published_date, text FROM %s ORDER BY seq, title`, t.table))
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := domain.NewArticles()
	for rows.Next() {
		var title string
		var article domain.Article
		if err := rows.Scan(&title, &article.URL, &article.PublishedDate, &article.Text); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles.Add(title, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return articles, nil
}

// SaveArticles inserts articles whose title is not stored yet, in one transaction
func (t *ArticleTable) SaveArticles(ctx context.Context, articles *domain.Articles) error {
	db := t.provider.DB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (seq, title, url, published_date, text) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (title) DO NOTHING`, t.table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var seq int64
	var insertErr error
	articles.Each(func(title string, article domain.Article) bool {
		if _, err := stmt.ExecContext(ctx, seq, title, article.URL, article.PublishedDate, article.Text); err != nil {
			insertErr = fmt.Errorf("insert article %q: %w", title, err)
			return false
		}
		seq++
		return true
	})
	if insertErr != nil {
		return insertErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
