package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"feed-ingest/pkg/db"
	"feed-ingest/pkg/domain"
)

// Store loads and saves the full article mapping
type Store interface {
	// Load returns the stored mapping, or an empty one if nothing is stored yet
	Load(ctx context.Context) (*domain.Articles, error)
	// Save persists the mapping. Implementations never remove stored articles.
	Save(ctx context.Context, articles *domain.Articles) error
	Close() error
	String() string
}

// Kind identifies a storage backend
type Kind string

const (
	KindJSON     Kind = "json"
	KindBolt     Kind = "bolt"
	KindMongo    Kind = "mongo"
	KindPostgres Kind = "postgres"
	KindSupabase Kind = "supabase"
)

// Options carries backend settings that are not part of the destination string
type Options struct {
	MongoDatabase   string
	MongoCollection string
	SQLTable        string
	Supabase        db.SupabaseConfig

	// MaxConns caps SQL connections; zero keeps the driver default
	MaxConns int
}

// KindOf infers the backend from the destination
func KindOf(destination string) Kind {
	lower := strings.ToLower(strings.TrimSpace(destination))
	switch {
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return KindMongo
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return KindPostgres
	case strings.HasPrefix(lower, "supabase://"):
		return KindSupabase
	case strings.HasPrefix(lower, "bolt://"):
		return KindBolt
	default:
		return KindJSON
	}
}

// LocalPath returns the filesystem path of a file-backed destination
func LocalPath(destination string) (string, bool) {
	trimmed := strings.TrimSpace(destination)
	switch KindOf(trimmed) {
	case KindJSON:
		return trimScheme(trimmed, "file://"), true
	case KindBolt:
		return trimScheme(trimmed, "bolt://"), true
	default:
		return "", false
	}
}

// trimScheme removes a case-insensitive scheme prefix
func trimScheme(destination, scheme string) string {
	if len(destination) >= len(scheme) && strings.EqualFold(destination[:len(scheme)], scheme) {
		return destination[len(scheme):]
	}
	return destination
}

// EnsureParentDir creates the parent directory of a file-backed destination
func EnsureParentDir(destination string) error {
	path, ok := LocalPath(destination)
	if !ok {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// Open connects to the backend selected by destination
func Open(ctx context.Context, destination string, opts Options) (Store, error) {
	destination = strings.TrimSpace(destination)
	switch KindOf(destination) {
	case KindJSON:
		path, _ := LocalPath(destination)
		return NewJSONFile(path), nil
	case KindBolt:
		path, _ := LocalPath(destination)
		return OpenBolt(path)
	case KindMongo:
		return openMongo(ctx, destination, opts)
	case KindPostgres:
		return openPostgres(ctx, destination, opts)
	case KindSupabase:
		return openSupabase(ctx, destination, opts)
	default:
		return nil, fmt.Errorf("unsupported destination %q", destination)
	}
}

// redact hides credentials in connection strings
func redact(destination string) string {
	u, err := url.Parse(destination)
	if err != nil || u.User == nil {
		return destination
	}
	return u.Redacted()
}
