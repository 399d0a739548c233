package ingest

import (
	"context"
	"errors"
	"fmt"

	"feed-ingest/pkg/content"
	"feed-ingest/pkg/domain"
	"feed-ingest/pkg/filter"
	"feed-ingest/pkg/httpclient"
	"feed-ingest/pkg/logger"
	"feed-ingest/pkg/parser"
	"feed-ingest/pkg/store"
	"feed-ingest/pkg/worker"
)

var (
	ErrFetchFeed    = errors.New("fetch feed")
	ErrLoadStore    = errors.New("load store")
	ErrFetchArticle = errors.New("fetch article")
	ErrExtract      = errors.New("extract text")
	ErrSaveStore    = errors.New("save store")
)

// Fetcher downloads a single page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*httpclient.Page, error)
}

// Config holds the service dependencies
type Config struct {
	Parser    parser.Parser
	Fetcher   Fetcher
	Extractor content.Extractor
	Store     store.Store
	Workers   int
	Logger    logger.Logger

	// StrictFeed fails the run with ErrFetchFeed when the feed cannot be read.
	// Otherwise an unreadable feed counts as an empty one.
	StrictFeed bool
}

// Result summarizes one run
type Result struct {
	// Added is the number of new articles written
	Added int
	// Skipped counts feed items that were incomplete or already known
	Skipped int
	// Total is the number of items in the feed
	Total int
}

// Service ingests a feed into a store
type Service struct {
	parser    parser.Parser
	fetcher   Fetcher
	extractor content.Extractor
	store     store.Store
	pool      *worker.Pool
	log       logger.Logger
	strict    bool
}

// NewService creates a new ingest service
func NewService(cfg Config) (*Service, error) {
	if cfg.Parser == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = content.NewParagraphExtractor()
	}
	log := logger.Ensure(cfg.Logger)

	return &Service{
		parser:    cfg.Parser,
		fetcher:   cfg.Fetcher,
		extractor: extractor,
		store:     cfg.Store,
		pool:      worker.NewPool(cfg.Workers, log),
		log:       log,
		strict:    cfg.StrictFeed,
	}, nil
}

// Run fetches every feed item whose title is not stored yet and saves the merged mapping.
// The store is written only after every step succeeded. A feed that cannot be
// fetched or parsed yields no items unless StrictFeed is set.
func (s *Service) Run(ctx context.Context, feedURL string) (Result, error) {
	items, err := s.parser.Parse(ctx, feedURL)
	if err != nil {
		if s.strict || ctx.Err() != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrFetchFeed, err)
		}
		s.log.Warn("feed unreadable, treating it as empty", "feed", feedURL, "error", err)
		items = nil
	}
	s.log.Info("feed parsed", "feed", feedURL, "items", len(items))

	articles, err := s.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrLoadStore, err)
	}
	s.log.Debug("store loaded", "store", s.store.String(), "articles", articles.Len())

	pending, err := filter.FilterItems(ctx, items,
		filter.NewCompleteItemFilter(s.log),
		filter.NewKnownTitleFilter(articles, s.log),
	)
	if err != nil {
		return Result{}, err
	}

	texts := make([]string, len(pending))
	err = s.pool.Run(ctx, len(pending), func(ctx context.Context, i int) error {
		text, err := s.download(ctx, pending[i])
		if err != nil {
			return err
		}
		texts[i] = text
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	for i, item := range pending {
		articles.Add(item.Title, domain.Article{
			URL:           item.Link,
			PublishedDate: item.Published,
			Text:          texts[i],
		})
	}

	if err := s.store.Save(ctx, articles); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSaveStore, err)
	}

	result := Result{
		Added:   len(pending),
		Skipped: len(items) - len(pending),
		Total:   len(items),
	}
	s.log.Info("feed ingested", "feed", feedURL, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}

// download fetches one article page and extracts its text
func (s *Service) download(ctx context.Context, item domain.FeedItem) (string, error) {
	s.log.Debug("fetching article", "title", item.Title, "url", item.Link)

	page, err := s.fetcher.Fetch(ctx, item.Link)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrFetchArticle, item.Link, err)
	}

	html, err := page.UTF8()
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrExtract, item.Link, err)
	}

	text, err := s.extractor.ExtractText(html)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrExtract, item.Link, err)
	}
	return text, nil
}
