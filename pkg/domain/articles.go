package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Articles is an ordered mapping from article title to Article.
// Iteration order is the order in which titles were first added,
// which is also the order they are written back to storage.
type Articles struct {
	titles  []string
	records map[string]Article
}

// NewArticles creates an empty mapping
func NewArticles() *Articles {
	return &Articles{
		records: make(map[string]Article),
	}
}

// Len returns the number of stored articles
func (a *Articles) Len() int {
	return len(a.titles)
}

// Has reports whether title is already stored
func (a *Articles) Has(title string) bool {
	_, ok := a.records[title]
	return ok
}

// Get returns the article stored under title
func (a *Articles) Get(title string) (Article, bool) {
	article, ok := a.records[title]
	return article, ok
}

// Add stores article under title unless the title is already present.
// Existing records are never replaced. Returns true if the article was added.
func (a *Articles) Add(title string, article Article) bool {
	if a.records == nil {
		a.records = make(map[string]Article)
	}
	if _, ok := a.records[title]; ok {
		return false
	}
	a.titles = append(a.titles, title)
	a.records[title] = article
	return true
}

// Titles returns a copy of the stored titles in insertion order
func (a *Articles) Titles() []string {
	out := make([]string, len(a.titles))
	copy(out, a.titles)
	return out
}

// Each calls fn for every article in insertion order until fn returns false
func (a *Articles) Each(fn func(title string, article Article) bool) {
	for _, title := range a.titles {
		if !fn(title, a.records[title]) {
			return
		}
	}
}

// MarshalJSON encodes the mapping as a compact JSON object with keys in insertion order.
// HTML characters are not escaped.
func (a *Articles) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, title := range a.titles {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONValue(&buf, title); err != nil {
			return nil, fmt.Errorf("failed to encode title %q: %w", title, err)
		}
		buf.WriteByte(':')
		if err := writeJSONValue(&buf, a.records[title]); err != nil {
			return nil, fmt.Errorf("failed to encode article %q: %w", title, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the mapping, keeping the key order of the document.
// If a key appears more than once the first occurrence wins.
func (a *Articles) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	tok, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("failed to read articles document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("articles document must be a JSON object, got %v", tok)
	}

	decoded := NewArticles()
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("failed to read article title: %w", err)
		}
		title, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v where article title was expected", tok)
		}

		var article Article
		if err := decoder.Decode(&article); err != nil {
			return fmt.Errorf("failed to decode article %q: %w", title, err)
		}
		decoded.Add(title, article)
	}

	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("failed to read end of articles document: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after articles document")
	}

	*a = *decoded
	return nil
}

// Encode writes the mapping as JSON indented with four spaces and no trailing newline
func (a *Articles) Encode(w io.Writer) error {
	compact, err := a.MarshalJSON()
	if err != nil {
		return err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, compact, "", "    "); err != nil {
		return fmt.Errorf("failed to indent articles: %w", err)
	}

	_, err = w.Write(indented.Bytes())
	return err
}

// writeJSONValue encodes v without HTML escaping and without the encoder's trailing newline
func writeJSONValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	encoder := json.NewEncoder(&tmp)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
