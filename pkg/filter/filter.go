package filter

import (
	"context"
	"fmt"
	"strings"

	"feed-ingest/pkg/domain"
	"feed-ingest/pkg/logger"
)

// Filter defines the interface for feed item filtering
type Filter interface {
	ShouldKeep(ctx context.Context, item domain.FeedItem) (bool, error)
}

// FilterItems applies all filters to the items, preserving feed order.
// Filters run in the order given and stop at the first one that rejects an item.
func FilterItems(ctx context.Context, items []domain.FeedItem, filters ...Filter) ([]domain.FeedItem, error) {
	filtered := make([]domain.FeedItem, 0, len(items))

	for _, item := range items {
		keep := true
		for _, f := range filters {
			shouldKeep, err := f.ShouldKeep(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("filter error for item %q: %w", item.Title, err)
			}
			if !shouldKeep {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, item)
		}
	}

	return filtered, nil
}

// CompleteItemFilter filters out items that have no title or no link
type CompleteItemFilter struct {
	log logger.Logger
}

// NewCompleteItemFilter creates a new complete-item filter
func NewCompleteItemFilter(log logger.Logger) *CompleteItemFilter {
	return &CompleteItemFilter{log: logger.Ensure(log)}
}

// ShouldKeep returns false if the item lacks a title or a link
func (f *CompleteItemFilter) ShouldKeep(ctx context.Context, item domain.FeedItem) (bool, error) {
	if item.Title == "" || strings.TrimSpace(item.Link) == "" {
		f.log.Warn("skipping incomplete feed item", "title", item.Title, "link", item.Link)
		return false, nil
	}
	return true, nil
}

// KnownTitleFilter filters out items whose title is already stored or was
// already kept earlier in the same run. The first item seen for a title wins.
type KnownTitleFilter struct {
	stored *domain.Articles
	seen   map[string]string // title -> link of the kept item
	log    logger.Logger
}

// NewKnownTitleFilter creates a filter backed by the stored articles
func NewKnownTitleFilter(stored *domain.Articles, log logger.Logger) *KnownTitleFilter {
	if stored == nil {
		stored = domain.NewArticles()
	}
	return &KnownTitleFilter{
		stored: stored,
		seen:   make(map[string]string),
		log:    logger.Ensure(log),
	}
}

// ShouldKeep returns true only the first time a title is encountered
func (f *KnownTitleFilter) ShouldKeep(ctx context.Context, item domain.FeedItem) (bool, error) {
	if existing, ok := f.stored.Get(item.Title); ok {
		f.reportCollision(item, existing.URL, "stored")
		return false, nil
	}
	if link, ok := f.seen[item.Title]; ok {
		f.reportCollision(item, link, "feed")
		return false, nil
	}

	f.seen[item.Title] = item.Link
	return true, nil
}

// reportCollision logs when a different article reuses a known title
func (f *KnownTitleFilter) reportCollision(item domain.FeedItem, knownURL, source string) {
	if knownURL == item.Link {
		f.log.Debug("skipping known article", "title", item.Title, "url", item.Link)
		return
	}
	f.log.Warn("title already used by another article, skipping",
		"title", item.Title,
		"url", item.Link,
		"kept_url", knownURL,
		"kept_from", source,
	)
}
