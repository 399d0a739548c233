package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"feed-ingest/pkg/content"
	"feed-ingest/pkg/db"
	"feed-ingest/pkg/httpclient"
	"feed-ingest/pkg/logger"
	"feed-ingest/pkg/store"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the commands
const EnvPrefix = "FEEDINGEST"

// ErrUsage marks invalid command lines. Commands exit with status 2 on it.
var ErrUsage = errors.New("usage")

// Config holds the settings shared by the commands
type Config struct {
	Timeout   time.Duration
	Client    httpclient.ClientType
	Extractor string
	Workers   int
	LogLevel  string
	LogFormat string
	Mongo     MongoConfig
	SQLTable  string
	MaxConns  int
	Supabase  db.SupabaseConfig

	// StrictFeed turns an unreadable feed into a failed run instead of an empty one
	StrictFeed bool

	// Args are the positional arguments left after flag parsing
	Args []string
}

// MongoConfig selects the database and collection for mongodb:// destinations
type MongoConfig struct {
	Database   string
	Collection string
}

// Logger returns the logger settings
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// StoreOptions returns the backend settings for store.Open
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		MongoDatabase:   c.Mongo.Database,
		MongoCollection: c.Mongo.Collection,
		SQLTable:        c.SQLTable,
		Supabase:        c.Supabase,
		MaxConns:        c.MaxConns,
	}
}

// RequireArgs fails with ErrUsage unless exactly n positional arguments were given
func (c *Config) RequireArgs(n int) error {
	if len(c.Args) != n {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrUsage, n, len(c.Args))
	}
	return nil
}

// LoadDotEnv loads variables from the given files, or ".env" when none are given.
// Missing files are ignored and variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func newFlagSet(name string, output io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(output)

	fs.Duration("timeout", httpclient.DefaultTimeout, "per-request HTTP timeout")
	fs.String("client", string(httpclient.DefaultClient), "HTTP header profile: default, browser or cloudflare (alias curl)")
	fs.String("extractor", content.ParagraphsName, "text extractor: paragraphs or readability")
	fs.Int("workers", 1, "number of concurrent article downloads")
	fs.Bool("strict-feed", false, "fail the run when the feed cannot be fetched or parsed")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "console", "log format: console or json")

	fs.String("mongo-db", "feedingest", "MongoDB database for mongodb:// destinations")
	fs.String("mongo-collection", "articles", "MongoDB collection for mongodb:// destinations")
	fs.String("pg-table", db.DefaultArticleTable, "table for postgres:// and supabase:// destinations")
	fs.Int("pg-max-conns", 4, "maximum open SQL connections, 0 for the driver default")

	fs.String("supabase-url", "", "Supabase project URL")
	fs.String("supabase-key", "", "Supabase API key")
	fs.String("supabase-password", "", "Supabase database password")
	fs.String("supabase-dsn", "", "Supabase Postgres connection string")

	return fs
}

// Load parses args for the named command. Flags win over FEEDINGEST_* environment
// variables, which win over defaults. pflag.ErrHelp is returned as is.
func Load(name string, args []string, output io.Writer) (*Config, error) {
	fs := newFlagSet(name, output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [flags] <source> <destination>\n\nFlags:\n", name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	clientType, err := httpclient.ParseClientType(v.GetString("client"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	cfg := &Config{
		Timeout:   v.GetDuration("timeout"),
		Client:    clientType,
		Extractor: v.GetString("extractor"),
		Workers:   v.GetInt("workers"),
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
		Mongo: MongoConfig{
			Database:   v.GetString("mongo-db"),
			Collection: v.GetString("mongo-collection"),
		},
		SQLTable: v.GetString("pg-table"),
		MaxConns: v.GetInt("pg-max-conns"),
		Supabase: db.SupabaseConfig{
			DSN:      v.GetString("supabase-dsn"),
			URL:      v.GetString("supabase-url"),
			APIKey:   v.GetString("supabase-key"),
			Password: v.GetString("supabase-password"),
		},
		StrictFeed: v.GetBool("strict-feed"),
		Args:       fs.Args(),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("pg-max-conns must not be negative, got %d", c.MaxConns)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := content.New(c.Extractor); err != nil {
		return err
	}
	return nil
}
