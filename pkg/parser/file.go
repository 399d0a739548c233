package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"feed-ingest/pkg/domain"

	"github.com/mmcdole/gofeed"
)

// FileParser handles reading a feed document from the local filesystem
type FileParser struct {
	feedParser *gofeed.Parser
}

// NewFileParser creates a new file parser
func NewFileParser() *FileParser {
	return &FileParser{
		feedParser: gofeed.NewParser(),
	}
}

// Parse reads the feed at path. A "file://" prefix is accepted.
func (p *FileParser) Parse(ctx context.Context, path string) ([]domain.FeedItem, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "file://")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer file.Close()

	feed, err := p.feedParser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed file %s: %w", path, err)
	}

	return toItems(feed), nil
}
