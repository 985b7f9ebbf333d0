// Package webpage wraps the detail page markup and the selectors the
// extractor depends on.
package webpage

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/famomatic/bvdl/internal/types"
)

// Selectors locate the metadata nodes of a detail page.
type Selectors struct {
	Title        string `yaml:"title"`
	Date         string `yaml:"date"`
	Description  string `yaml:"description"`
	TagContainer string `yaml:"tag_container"`
	TagItem      string `yaml:"tag_item"`
}

// DefaultSelectors returns the selectors matching the current detail page layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:        "h1.video-title",
		Date:         "span.pudate",
		Description:  "span.desc-info-text",
		TagContainer: "ul.tag-area",
		TagItem:      "li",
	}
}

// WithDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	if strings.TrimSpace(s.Title) == "" {
		s.Title = d.Title
	}
	if strings.TrimSpace(s.Date) == "" {
		s.Date = d.Date
	}
	if strings.TrimSpace(s.Description) == "" {
		s.Description = d.Description
	}
	if strings.TrimSpace(s.TagContainer) == "" {
		s.TagContainer = d.TagContainer
	}
	if strings.TrimSpace(s.TagItem) == "" {
		s.TagItem = d.TagItem
	}
	return s
}

// Document is a parsed HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw markup.
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Text returns the trimmed text of the single node matching selector.
// Zero or several matches are reported as a missing field.
func (d *Document) Text(selector string) (string, error) {
	sel := d.doc.Find(selector)
	switch n := sel.Length(); n {
	case 1:
		return strings.TrimSpace(sel.Text()), nil
	case 0:
		return "", &types.MissingFieldError{Field: selector, Detail: "no matching node"}
	default:
		return "", &types.MissingFieldError{Field: selector, Detail: fmt.Sprintf("%d matching nodes, want 1", n)}
	}
}

// ChildTexts returns the trimmed, non-empty texts of item children of the
// first container match, in document order.
func (d *Document) ChildTexts(container, item string) ([]string, error) {
	root := d.doc.Find(container).First()
	if root.Length() == 0 {
		return nil, &types.MissingFieldError{Field: container, Detail: "no matching node"}
	}
	out := []string{}
	root.Find(item).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out, nil
}

// InlineScripts returns the bodies of script elements without a src attribute.
func (d *Document) InlineScripts() []string {
	var out []string
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if body := scriptText(s.Get(0)); body != "" {
			out = append(out, body)
		}
	})
	return out
}

func scriptText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
