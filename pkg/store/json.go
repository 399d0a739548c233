package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"feed-ingest/pkg/domain"
)

// JSONFile keeps the mapping in one JSON document on disk
type JSONFile struct {
	path string
}

// NewJSONFile returns a store for the file at path
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the whole file. A missing file yields an empty mapping.
func (s *JSONFile) Load(ctx context.Context) (*domain.Articles, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewArticles(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	articles := domain.NewArticles()
	if err := articles.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return articles, nil
}

// Save replaces the file with the encoded mapping.
// The data is written to a temporary file in the same directory and renamed
// over the destination, so readers never observe a partially written file.
func (s *JSONFile) Save(ctx context.Context, articles *domain.Articles) error {
	var buf bytes.Buffer
	if err := articles.Encode(&buf); err != nil {
		return fmt.Errorf("encode articles: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	committed = true
	return nil
}

// Close is a no-op; the file is only open during Load and Save
func (s *JSONFile) Close() error { return nil }

func (s *JSONFile) String() string { return s.path }
