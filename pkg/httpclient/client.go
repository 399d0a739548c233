package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// DefaultClient sends resty's default headers
	DefaultClient ClientType = "default"

	// BrowserClient uses browser-like headers to avoid 406 (Not Acceptable) errors
	// Used for sites that require browser-like User-Agent and headers
	BrowserClient ClientType = "browser"

	// CloudflareClient uses simple headers (like curl) to avoid 403 (Forbidden) errors
	// Used for Cloudflare-protected sites that block browser-like User-Agents
	CloudflareClient ClientType = "cloudflare"

	// DefaultTimeout bounds a single request when no timeout is configured
	DefaultTimeout = 30 * time.Second

	maxRedirects   = 10
	maxSnippetSize = 512
)

// ParseClientType validates a client type name from configuration
func ParseClientType(name string) (ClientType, error) {
	switch ClientType(strings.ToLower(strings.TrimSpace(name))) {
	case "", DefaultClient:
		return DefaultClient, nil
	case BrowserClient:
		return BrowserClient, nil
	case CloudflareClient, "curl":
		return CloudflareClient, nil
	default:
		return "", fmt.Errorf("unknown client type %q (want default, browser or cloudflare)", name)
	}
}

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Snippet)
}

// Page is a successfully downloaded response body
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// UTF8 returns the body decoded to UTF-8 using the Content-Type charset,
// falling back to sniffing the document when the header has none
func (p *Page) UTF8() (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	return string(decoded), nil
}

// HTTPClient wraps a resty client with configuration
type HTTPClient struct {
	client     *resty.Client
	clientType ClientType
}

// NewClient creates a new HTTP client with the specified type and per-request timeout
func NewClient(clientType ClientType, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))

	return &HTTPClient{
		client:     client,
		clientType: clientType,
	}
}

// Fetch performs a GET request and returns the body of a 2xx response
func (c *HTTPClient) Fetch(ctx context.Context, url string) (*Page, error) {
	req := c.client.R().SetContext(ctx)
	c.setHeaders(req)

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Snippet:    snippet(resp.Body()),
		}
	}

	return &Page{
		URL:         url,
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

// setHeaders sets the appropriate headers based on client type
func (c *HTTPClient) setHeaders(req *resty.Request) {
	switch c.clientType {
	case BrowserClient:
		req.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		req.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.SetHeader("Accept-Language", "en-US,en;q=0.9")
		req.SetHeader("Upgrade-Insecure-Requests", "1")

	case CloudflareClient:
		// Cloudflare lets curl through but blocks browser-like User-Agents
		req.SetHeader("User-Agent", "curl/8.7.1")

	default:
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxSnippetSize {
		return s[:maxSnippetSize] + "..."
	}
	return s
}
