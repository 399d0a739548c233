package replication

import (
	"context"
	"fmt"

	"feed-ingest/pkg/domain"
	"feed-ingest/pkg/logger"
	"feed-ingest/pkg/store"
)

const progressEvery = 1000

// Config wires the replication dependencies.
type Config struct {
	Source store.Store
	Target store.Store
	Logger logger.Logger
}

// Replicator copies articles from one store into another.
//
// This is a one-shot, "copy everything missing" flow: titles already present in
// the target are left untouched, new ones are appended in source order.
type Replicator struct {
	source store.Store
	target store.Store
	log    logger.Logger
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source store is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("target store is required")
	}
	return &Replicator{
		source: cfg.Source,
		target: cfg.Target,
		log:    logger.Ensure(cfg.Logger),
	}, nil
}

// Replicate loads both stores, appends the missing articles to the target and
// saves it. It returns the number of copied articles.
func (r *Replicator) Replicate(ctx context.Context) (int, error) {
	source, err := r.source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load source: %w", err)
	}
	target, err := r.target.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load target: %w", err)
	}

	r.log.Info("replicating articles",
		"source", r.source.String(),
		"target", r.target.String(),
		"source_articles", source.Len(),
		"target_articles", target.Len(),
	)

	copied, processed := mergeMissing(target, source, func(processed, copied int) {
		r.log.Info("progress", "processed", processed, "total", source.Len(), "copied", copied)
	})

	if copied == 0 {
		r.log.Info("target already up to date", "processed", processed)
		return 0, nil
	}

	if err := r.target.Save(ctx, target); err != nil {
		return 0, fmt.Errorf("save target: %w", err)
	}

	r.log.Info("replication complete", "processed", processed, "copied", copied)
	return copied, nil
}

// mergeMissing adds every source article whose title is absent from target
func mergeMissing(target, source *domain.Articles, progress func(processed, copied int)) (copied, processed int) {
	source.Each(func(title string, article domain.Article) bool {
		if target.Add(title, article) {
			copied++
		}
		processed++
		if processed%progressEvery == 0 {
			progress(processed, copied)
		}
		return true
	})
	return copied, processed
}
