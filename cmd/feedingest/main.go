package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"feed-ingest/pkg/config"
	"feed-ingest/pkg/content"
	"feed-ingest/pkg/httpclient"
	"feed-ingest/pkg/ingest"
	"feed-ingest/pkg/logger"
	"feed-ingest/pkg/parser"
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

	cfg, err := config.Load("feedingest", args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err == nil {
		err = cfg.RequireArgs(2)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\nUsage: feedingest [flags] <feed-url> <destination>\n", err)
		return 2
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer log.Sync()

	feedURL, destination := cfg.Args[0], cfg.Args[1]
	fmt.Fprintf(stdout, "Fetching articles for %s\n", feedURL)

	result, err := ingestFeed(ctx, cfg, log, feedURL, destination)
	if err != nil {
		log.Error("ingest failed", "feed", feedURL, "destination", destination, "error", err)
		return 1
	}

	fmt.Fprintf(stdout, "Saving to %s. Added %d new articles.\n", destination, result.Added)
	return 0
}

func ingestFeed(ctx context.Context, cfg *config.Config, log logger.Logger, feedURL, destination string) (ingest.Result, error) {
	if err := store.EnsureParentDir(destination); err != nil {
		return ingest.Result{}, err
	}

	st, err := store.Open(ctx, destination, cfg.StoreOptions())
	if err != nil {
		return ingest.Result{}, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close store", "store", st.String(), "error", err)
		}
	}()

	extractor, err := content.New(cfg.Extractor)
	if err != nil {
		return ingest.Result{}, err
	}

	client := httpclient.NewClient(cfg.Client, cfg.Timeout)
	service, err := ingest.NewService(ingest.Config{
		Parser:     parser.New(client),
		Fetcher:    client,
		Extractor:  extractor,
		Store:      st,
		Workers:    cfg.Workers,
		Logger:     log,
		StrictFeed: cfg.StrictFeed,
	})
	if err != nil {
		return ingest.Result{}, err
	}

	return service.Run(ctx, feedURL)
}
