package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"feed-ingest/pkg/httpclient"
	"feed-ingest/pkg/logger"
	"feed-ingest/pkg/parser"
	"feed-ingest/pkg/store"
)

type feedEntry struct {
	title, path, published string
}

// feedServer serves an RSS feed at /feed and article pages at their paths
type feedServer struct {
	*httptest.Server

	mu      sync.Mutex
	entries []feedEntry
	pages   map[string]string
	hits    map[string]int
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{pages: map[string]string{}, hits: map[string]int{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if r.URL.Path == "/feed" {
		w.Header().Set("Content-Type", "application/rss+xml")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Test</title>`)
		for _, e := range fs.entries {
			fmt.Fprintf(&b, "<item><title>%s</title><link>%s%s</link><pubDate>%s</pubDate></item>", e.title, fs.URL, e.path, e.published)
		}
		b.WriteString(`</channel></rss>`)
		w.Write([]byte(b.String()))
		return
	}

	fs.hits[r.URL.Path]++
	page, ok := fs.pages[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (fs *feedServer) setFeed(entries ...feedEntry) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.entries = entries
}

func (fs *feedServer) setPage(path, html string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pages[path] = html
}

func (fs *feedServer) hitCount(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits[path]
}

func newTestService(t *testing.T, path string, workers int) *Service {
	t.Helper()
	client := httpclient.NewClient(httpclient.DefaultClient, 2*time.Second)
	service, err := NewService(Config{
		Parser:  parser.New(client),
		Fetcher: client,
		Store:   store.NewJSONFile(path),
		Workers: workers,
		Logger:  logger.NopLogger{},
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return service
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestService_Run_NewDestination(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"T1", "/u1", "d1"})
	fs.setPage("/u1", "<html><body><p>A</p><div>skip</div><p>B</p></body></html>")

	path := filepath.Join(t.TempDir(), "articles.json")
	result, err := newTestService(t, path, 1).Run(context.Background(), fs.URL+"/feed")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Added != 1 || result.Total != 1 {
		t.Errorf("Expected 1 added of 1, got %+v", result)
	}

	expected := fmt.Sprintf("{\n    \"T1\": {\n        \"url\": \"%s/u1\",\n        \"published_date\": \"d1\",\n        \"text\": \"A\\nB\"\n    }\n}", fs.URL)
	if got := readFile(t, path); got != expected {
		t.Errorf("Unexpected file content:\n%s\nexpected:\n%s", got, expected)
	}
}

func TestService_Run_IdempotentRerun(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"T1", "/u1", "d1"}, feedEntry{"T2", "/u2", "d2"})
	fs.setPage("/u1", "<p>one</p>")
	fs.setPage("/u2", "<p>two</p>")

	path := filepath.Join(t.TempDir(), "articles.json")
	service := newTestService(t, path, 1)

	if _, err := service.Run(context.Background(), fs.URL+"/feed"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	first := readFile(t, path)

	result, err := service.Run(context.Background(), fs.URL+"/feed")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.Added != 0 {
		t.Errorf("Expected 0 added on rerun, got %d", result.Added)
	}
	if second := readFile(t, path); second != first {
		t.Errorf("Expected byte-identical file on rerun:\n%s\n---\n%s", first, second)
	}
	if fs.hitCount("/u1") != 1 || fs.hitCount("/u2") != 1 {
		t.Errorf("Known articles were fetched again: u1=%d u2=%d", fs.hitCount("/u1"), fs.hitCount("/u2"))
	}
}

func TestService_Run_DeduplicatesTitles(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"Same", "/first", "d1"}, feedEntry{"Same", "/second", "d2"})
	fs.setPage("/first", "<p>first</p>")
	fs.setPage("/second", "<p>second</p>")

	path := filepath.Join(t.TempDir(), "articles.json")
	result, err := newTestService(t, path, 1).Run(context.Background(), fs.URL+"/feed")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Added != 1 || result.Skipped != 1 {
		t.Errorf("Expected 1 added and 1 skipped, got %+v", result)
	}
	if fs.hitCount("/second") != 0 {
		t.Error("Duplicate title should not be fetched")
	}

	articles, err := store.NewJSONFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec, _ := articles.Get("Same"); rec.Text != "first" {
		t.Errorf("Expected first item to win, got text %q", rec.Text)
	}
}

func TestService_Run_AppendOnly(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"Old", "/old", "d1"})
	fs.setPage("/old", "<p>original</p>")

	path := filepath.Join(t.TempDir(), "articles.json")
	service := newTestService(t, path, 1)
	if _, err := service.Run(context.Background(), fs.URL+"/feed"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// The page changes, and a new item shows up ahead of the old one
	fs.setPage("/old", "<p>edited</p>")
	fs.setPage("/new", "<p>fresh</p>")
	fs.setFeed(feedEntry{"New", "/new", "d2"}, feedEntry{"Old", "/old", "d1"})

	result, err := service.Run(context.Background(), fs.URL+"/feed")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.Added != 1 {
		t.Errorf("Expected 1 added, got %d", result.Added)
	}

	articles, err := store.NewJSONFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	titles := articles.Titles()
	if len(titles) != 2 || titles[0] != "Old" || titles[1] != "New" {
		t.Errorf("Expected [Old New], got %v", titles)
	}
	if rec, _ := articles.Get("Old"); rec.Text != "original" {
		t.Errorf("Existing record changed: %q", rec.Text)
	}
}

func TestService_Run_ArticleFailureWritesNothing(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"T1", "/u1", "d1"})
	fs.setPage("/u1", "<p>one</p>")

	path := filepath.Join(t.TempDir(), "articles.json")
	service := newTestService(t, path, 1)
	if _, err := service.Run(context.Background(), fs.URL+"/feed"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	before := readFile(t, path)

	fs.setFeed(feedEntry{"T1", "/u1", "d1"}, feedEntry{"T2", "/u2", "d2"}, feedEntry{"T3", "/missing", "d3"})
	fs.setPage("/u2", "<p>two</p>")

	_, err := service.Run(context.Background(), fs.URL+"/feed")
	if !errors.Is(err, ErrFetchArticle) {
		t.Fatalf("Expected ErrFetchArticle, got %v", err)
	}
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected wrapped 404 StatusError, got %v", err)
	}
	if after := readFile(t, path); after != before {
		t.Errorf("File changed after failed run:\n%s", after)
	}
}

func TestService_Run_UnreadableFeedCountsAsEmpty(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"T1", "/u1", "d1"})
	fs.setPage("/u1", "<p>one</p>")

	path := filepath.Join(t.TempDir(), "articles.json")
	service := newTestService(t, path, 1)
	if _, err := service.Run(context.Background(), fs.URL+"/feed"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	before := readFile(t, path)

	for _, source := range []string{fs.URL + "/not-a-feed", fs.URL + "/u1", "http://127.0.0.1:1/feed"} {
		result, err := service.Run(context.Background(), source)
		if err != nil {
			t.Fatalf("Run(%s) failed: %v", source, err)
		}
		if result.Added != 0 || result.Total != 0 {
			t.Errorf("Run(%s): expected nothing processed, got %+v", source, result)
		}
		if after := readFile(t, path); after != before {
			t.Errorf("Run(%s) changed the file:\n%s", source, after)
		}
	}
}

func TestService_Run_UnreadableFeedWritesEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	result, err := newTestService(t, path, 1).Run(context.Background(), "http://127.0.0.1:1/feed")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Added != 0 {
		t.Errorf("Expected 0 added, got %d", result.Added)
	}
	if got := readFile(t, path); got != "{}" {
		t.Errorf("Expected empty object, got %q", got)
	}
}

func TestService_Run_StrictFeedFailureCreatesNoFile(t *testing.T) {
	fs := newFeedServer(t)

	path := filepath.Join(t.TempDir(), "articles.json")
	client := httpclient.NewClient(httpclient.DefaultClient, 2*time.Second)
	service, err := NewService(Config{
		Parser:     parser.New(client),
		Fetcher:    client,
		Store:      store.NewJSONFile(path),
		StrictFeed: true,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	_, err = service.Run(context.Background(), fs.URL+"/not-a-feed")
	if !errors.Is(err, ErrFetchFeed) {
		t.Fatalf("Expected ErrFetchFeed, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Expected no destination file after feed failure")
	}
}

func TestService_Run_MalformedStoreAbortsBeforeFetch(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"T1", "/u1", "d1"})
	fs.setPage("/u1", "<p>one</p>")

	path := filepath.Join(t.TempDir(), "articles.json")
	if err := os.WriteFile(path, []byte("[1, 2"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := newTestService(t, path, 1).Run(context.Background(), fs.URL+"/feed")
	if !errors.Is(err, ErrLoadStore) {
		t.Fatalf("Expected ErrLoadStore, got %v", err)
	}
	if fs.hitCount("/u1") != 0 {
		t.Error("No article should be fetched when the store cannot be loaded")
	}
}

func TestService_Run_EmptyFeed(t *testing.T) {
	fs := newFeedServer(t)

	path := filepath.Join(t.TempDir(), "articles.json")
	result, err := newTestService(t, path, 1).Run(context.Background(), fs.URL+"/feed")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Added != 0 {
		t.Errorf("Expected 0 added, got %d", result.Added)
	}
	if got := readFile(t, path); got != "{}" {
		t.Errorf("Expected empty object, got %q", got)
	}
}

func TestService_Run_NoParagraphs(t *testing.T) {
	fs := newFeedServer(t)
	fs.setFeed(feedEntry{"T1", "/u1", "d1"})
	fs.setPage("/u1", "<html><body><div>no paragraphs</div></body></html>")

	path := filepath.Join(t.TempDir(), "articles.json")
	if _, err := newTestService(t, path, 1).Run(context.Background(), fs.URL+"/feed"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	articles, err := store.NewJSONFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec, ok := articles.Get("T1"); !ok || rec.Text != "" {
		t.Errorf("Expected empty text, got %q (present=%v)", rec.Text, ok)
	}
}

func TestService_Run_ParallelMatchesSequential(t *testing.T) {
	fs := newFeedServer(t)
	var entries []feedEntry
	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("/a%d", i)
		entries = append(entries, feedEntry{fmt.Sprintf("Title %d", i), path, "d"})
		fs.setPage(path, fmt.Sprintf("<p>body %d</p>", i))
	}
	fs.setFeed(entries...)

	dir := t.TempDir()
	sequential := filepath.Join(dir, "sequential.json")
	parallel := filepath.Join(dir, "parallel.json")

	if _, err := newTestService(t, sequential, 1).Run(context.Background(), fs.URL+"/feed"); err != nil {
		t.Fatalf("Sequential run failed: %v", err)
	}
	result, err := newTestService(t, parallel, 4).Run(context.Background(), fs.URL+"/feed")
	if err != nil {
		t.Fatalf("Parallel run failed: %v", err)
	}
	if result.Added != len(entries) {
		t.Errorf("Expected %d added, got %d", len(entries), result.Added)
	}
	if readFile(t, sequential) != readFile(t, parallel) {
		t.Error("Parallel run produced a different file than the sequential run")
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Error("Expected error for empty config")
	}
}
