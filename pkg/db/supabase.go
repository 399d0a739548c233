package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig selects how a Supabase project is reached.
// DSN, or URL plus Password, gives direct Postgres access.
// URL plus APIKey gives access through the REST API.
type SupabaseConfig struct {
	DSN      string
	URL      string // https://<project-ref>.supabase.co
	APIKey   string
	Password string // database password, not the API key
	MaxConns int
}

// SupabaseClient reaches the article table directly when it can and through
// the REST API otherwise.
type SupabaseClient struct {
	cfg  SupabaseConfig
	db   *sql.DB
	rest *supabase.Client

	// directErr is why direct access was given up in favour of REST
	directErr error
}

func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect sets up the REST client when URL and key are configured and opens a
// direct connection when a DSN can be built. A failed direct connection is only
// fatal when there is no REST client to fall back to.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.URL != "" && c.cfg.APIKey != "" {
		rest, err := supabase.NewClient(c.cfg.URL, c.cfg.APIKey, nil)
		if err != nil {
			return fmt.Errorf("supabase REST client: %w", err)
		}
		c.rest = rest
	}

	dsn, err := c.cfg.directDSN()
	if err != nil && c.rest == nil {
		return err
	}
	if dsn != "" {
		db, err := openPgx(ctx, poolerSafe(dsn), c.cfg.MaxConns)
		if err != nil && c.rest == nil {
			return fmt.Errorf("supabase postgres: %w", err)
		}
		c.db, c.directErr = db, err
	} else {
		c.directErr = err
	}

	if c.db == nil && c.rest == nil {
		return errors.New("supabase: set a DSN, the project URL with a password, or the project URL with an API key")
	}
	return nil
}

// Articles returns the article table in the best available mode.
// Only direct mode can create the table; REST mode expects it to exist.
func (c *SupabaseClient) Articles(ctx context.Context, table string) (ArticleStorage, error) {
	if c.db != nil {
		t, err := NewArticleTable(c, table)
		if err != nil {
			return nil, err
		}
		if err := t.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return t, nil
	}
	return NewArticleREST(c.rest, table)
}

// Mode reports "direct" or "rest"
func (c *SupabaseClient) Mode() string {
	if c.db != nil {
		return "direct"
	}
	return "rest"
}

// DirectErr returns why direct access is unavailable, if it was attempted
func (c *SupabaseClient) DirectErr() error {
	return c.directErr
}

func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB is nil in REST mode
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// directDSN returns the configured DSN or derives one from the project URL and
// password. It returns "" when neither is configured.
func (cfg SupabaseConfig) directDSN() (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Password == "" {
		return "", nil
	}
	if cfg.URL == "" {
		return "", errors.New("supabase: project URL is required with a password")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("supabase: parse project URL: %w", err)
	}
	ref, _, ok := strings.Cut(u.Hostname(), ".")
	if !ok || ref == "" {
		return "", fmt.Errorf("supabase: project URL %q is not <project-ref>.supabase.co", cfg.URL)
	}

	dsn := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword("postgres", cfg.Password),
		Host:     "db." + ref + ".supabase.co:5432",
		Path:     "/postgres",
		RawQuery: "sslmode=require",
	}
	return dsn.String(), nil
}

// poolerSafe disables prepared statement caching, which the Supabase pooler rejects.
// Parameters already present in the DSN are kept.
func poolerSafe(dsn string) string {
	params := [][2]string{
		{"statement_cache_capacity", "0"},
		{"default_query_exec_mode", "simple_protocol"},
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// keyword/value form: host=... user=...
		for _, p := range params {
			if !strings.Contains(dsn, p[0]+"=") {
				dsn += " " + p[0] + "=" + p[1]
			}
		}
		return dsn
	}

	q := u.Query()
	for _, p := range params {
		if q.Get(p[0]) == "" {
			q.Set(p[0], p[1])
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
