package db

import (
	"context"
	"fmt"

	"feed-ingest/pkg/domain"

	"github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"
)

const restPageSize = 1000

// articleRow is the REST representation of one article row
type articleRow struct {
	Seq           int64  `json:"seq"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
	Text          string `json:"text"`
}

// ArticleREST stores articles through the Supabase REST API.
// The table must already exist with the ArticleTable schema.
type ArticleREST struct {
	client *supabase.Client
	table  string
}

// NewArticleREST returns a REST-backed article table
func NewArticleREST(client *supabase.Client, table string) (*ArticleREST, error) {
	if client == nil {
		return nil, fmt.Errorf("supabase REST client is required")
	}
	if table == "" {
		table = DefaultArticleTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ArticleREST{client: client, table: table}, nil
}

// LoadArticles pages through the table ordered by seq
func (r *ArticleREST) LoadArticles(ctx context.Context) (*domain.Articles, error) {
	articles := domain.NewArticles()

	for from := 0; ; from += restPageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rows []articleRow
		_, err := r.client.From(r.table).
			Select("seq,title,url,published_date,text", "", false).
			Order("seq", &postgrest.OrderOpts{Ascending: true}).
			Range(from, from+restPageSize-1, "").
			ExecuteTo(&rows)
		if err != nil {
			return nil, fmt.Errorf("select articles: %w", err)
		}

		for _, row := range rows {
			articles.Add(row.Title, domain.Article{URL: row.URL, PublishedDate: row.PublishedDate, Text: row.Text})
		}
		if len(rows) < restPageSize {
			return articles, nil
		}
	}
}

// SaveArticles inserts the titles missing from the table
func (r *ArticleREST) SaveArticles(ctx context.Context, articles *domain.Articles) error {
	stored, err := r.LoadArticles(ctx)
	if err != nil {
		return err
	}

	var rows []articleRow
	var seq int64
	articles.Each(func(title string, article domain.Article) bool {
		if !stored.Has(title) {
			rows = append(rows, articleRow{
				Seq:           seq,
				Title:         title,
				URL:           article.URL,
				PublishedDate: article.PublishedDate,
				Text:          article.Text,
			})
		}
		seq++
		return true
	})
	if len(rows) == 0 {
		return nil
	}

	if _, _, err := r.client.From(r.table).Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert articles: %w", err)
	}
	return nil
}
