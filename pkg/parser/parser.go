package parser

import (
	"context"
	"strings"

	"feed-ingest/pkg/domain"
	"feed-ingest/pkg/httpclient"

	"github.com/mmcdole/gofeed"
)

// Parser reads a syndication feed and returns its items in feed order
type Parser interface {
	Parse(ctx context.Context, source string) ([]domain.FeedItem, error)
}

// SourceParser picks the RSS parser for http(s) sources and the file parser otherwise
type SourceParser struct {
	rss  *RSSParser
	file *FileParser
}

// New creates a parser that downloads remote feeds with client
func New(client *httpclient.HTTPClient) *SourceParser {
	return &SourceParser{
		rss:  NewRSSParser(client),
		file: NewFileParser(),
	}
}

// Parse dispatches on the source scheme
func (p *SourceParser) Parse(ctx context.Context, source string) ([]domain.FeedItem, error) {
	if IsRemote(source) {
		return p.rss.Parse(ctx, source)
	}
	return p.file.Parse(ctx, source)
}

// IsRemote reports whether source is an http or https URL
func IsRemote(source string) bool {
	lower := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// toItems converts gofeed items, keeping feed order
func toItems(feed *gofeed.Feed) []domain.FeedItem {
	if feed == nil {
		return nil
	}

	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		published := item.Published
		if published == "" {
			// Atom entries often carry only <updated>
			published = item.Updated
		}
		items = append(items, domain.FeedItem{
			Title:     item.Title,
			Link:      item.Link,
			Published: published,
		})
	}
	return items
}
