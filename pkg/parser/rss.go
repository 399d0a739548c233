package parser

import (
	"bytes"
	"context"
	"fmt"

	"feed-ingest/pkg/domain"
	"feed-ingest/pkg/httpclient"

	"github.com/mmcdole/gofeed"
)

// RSSParser handles RSS/Atom/JSON feed parsing for remote feeds
type RSSParser struct {
	client     *httpclient.HTTPClient
	feedParser *gofeed.Parser
}

// NewRSSParser creates a new RSS parser that downloads feeds with client
func NewRSSParser(client *httpclient.HTTPClient) *RSSParser {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultClient, httpclient.DefaultTimeout)
	}
	return &RSSParser{
		client:     client,
		feedParser: gofeed.NewParser(),
	}
}

// Parse fetches and parses a feed from the given URL.
// A well-formed feed without items yields an empty slice and no error.
func (p *RSSParser) Parse(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	page, err := p.client.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download feed: %w", err)
	}

	feed, err := p.feedParser.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return toItems(feed), nil
}
