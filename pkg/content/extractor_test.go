package content

import (
	"strings"
	"testing"
)

func TestExtractParagraphs(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "two paragraphs",
			html:     `<p>A</p><p>B</p>`,
			expected: "A\nB",
		},
		{
			name:     "no paragraphs",
			html:     `<html><body><div>only a div</div></body></html>`,
			expected: "",
		},
		{
			name:     "empty document",
			html:     ``,
			expected: "",
		},
		{
			name:     "inline markup is flattened",
			html:     `<article><p>Hello <b>bold</b> <a href="/x">link</a></p><div><p>nested</p></div></article>`,
			expected: "Hello bold link\nnested",
		},
		{
			name:     "empty paragraph kept as empty line",
			html:     `<p>one</p><p></p><p>three</p>`,
			expected: "one\n\nthree",
		},
		{
			name:     "entities decoded",
			html:     `<p>Fish &amp; chips &lt;3</p>`,
			expected: "Fish & chips <3",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractParagraphs(tc.html)
			if err != nil {
				t.Fatalf("ExtractParagraphs failed: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestReadabilityExtractor_ExtractText(t *testing.T) {
	htmlContent := `
	<!DOCTYPE html>
	<html>
	<head><title>Data Engineering for AI</title></head>
	<body>
		<nav><a href="/">Home</a></nav>
		<article>
			<h1>Data Engineering for AI</h1>
			<div class="content">
				<p>In this episode, Flavia Saldanha discusses data engineering practices for AI systems and the pipelines behind them.</p>
				<p>She covers topics such as data pipelines, feature stores, and MLOps, and how teams can keep training data fresh.</p>
			</div>
		</article>
	</body>
	</html>
	`

	text, err := NewReadabilityExtractor().ExtractText(htmlContent)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if !strings.Contains(text, "data engineering") {
		t.Errorf("Expected text to contain 'data engineering', got %q", text)
	}
}

func TestNew(t *testing.T) {
	if e, err := New(""); err != nil {
		t.Fatalf("New(\"\") failed: %v", err)
	} else if _, ok := e.(*ParagraphExtractor); !ok {
		t.Errorf("Expected ParagraphExtractor by default, got %T", e)
	}

	if e, err := New("readability"); err != nil {
		t.Fatalf("New(readability) failed: %v", err)
	} else if _, ok := e.(*ReadabilityExtractor); !ok {
		t.Errorf("Expected ReadabilityExtractor, got %T", e)
	}

	if _, err := New("ocr"); err == nil {
		t.Error("Expected error for unknown extractor")
	}
}
