package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed-ingest/pkg/config"
	"feed-ingest/pkg/logger"
	"feed-ingest/pkg/replication"
	"feed-ingest/pkg/store"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.Load("feedcopy", args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err == nil {
		err = cfg.RequireArgs(2)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\nUsage: feedcopy [flags] <source> <target>\n", err)
		return 2
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer log.Sync()

	start := time.Now()
	copied, err := replicate(ctx, cfg, log, cfg.Args[0], cfg.Args[1])
	if err != nil {
		log.Error("replication failed", "source", cfg.Args[0], "target", cfg.Args[1], "error", err)
		return 1
	}

	fmt.Fprintf(stdout, "Copied %d articles to %s in %s.\n", copied, cfg.Args[1], time.Since(start).Round(time.Millisecond))
	return 0
}

func replicate(ctx context.Context, cfg *config.Config, log logger.Logger, sourceDest, targetDest string) (int, error) {
	source, err := store.Open(ctx, sourceDest, cfg.StoreOptions())
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	if err := store.EnsureParentDir(targetDest); err != nil {
		return 0, err
	}
	target, err := store.Open(ctx, targetDest, cfg.StoreOptions())
	if err != nil {
		return 0, fmt.Errorf("open target: %w", err)
	}
	defer target.Close()

	r, err := replication.NewReplicator(replication.Config{
		Source: source,
		Target: target,
		Logger: log,
	})
	if err != nil {
		return 0, err
	}
	return r.Replicate(ctx)
}
