package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const (
	// ParagraphsName selects ParagraphExtractor
	ParagraphsName = "paragraphs"
	// ReadabilityName selects ReadabilityExtractor
	ReadabilityName = "readability"
)

// Extractor defines an interface for extracting article text from HTML content
type Extractor interface {
	ExtractText(htmlContent string) (string, error)
}

// New returns the extractor registered under name
func New(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ParagraphsName:
		return NewParagraphExtractor(), nil
	case ReadabilityName:
		return NewReadabilityExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q (want %s or %s)", name, ParagraphsName, ReadabilityName)
	}
}

// ParagraphExtractor joins the text of every <p> element
type ParagraphExtractor struct{}

// NewParagraphExtractor creates a new paragraph extractor
func NewParagraphExtractor() *ParagraphExtractor {
	return &ParagraphExtractor{}
}

// ExtractText implements Extractor
func (e *ParagraphExtractor) ExtractText(htmlContent string) (string, error) {
	return ExtractParagraphs(htmlContent)
}

// ExtractParagraphs returns the text content of all <p> elements in document order,
// joined by newlines. A document without paragraphs yields "".
func ExtractParagraphs(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	paragraphs := doc.Find("p")
	parts := make([]string, 0, paragraphs.Length())
	paragraphs.Each(func(i int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})

	return strings.Join(parts, "\n"), nil
}

// ReadabilityExtractor extracts the main article body using readability heuristics
type ReadabilityExtractor struct{}

// NewReadabilityExtractor creates a new readability extractor
func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

// ExtractText implements Extractor
func (e *ReadabilityExtractor) ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}
