// Package extract isolates the readable article from raw page markup and
// scrapes lightweight metadata from the surrounding document.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/internal/domain"
)

// metaPattern is one attempt in a per-field priority list. The attribute
// value ("content", then "datetime") is preferred over element text.
type metaPattern struct {
	selector string
}

var authorPatterns = []metaPattern{
	{`meta[name="author"]`},
	{`meta[property="article:author"]`},
	{`meta[name="article:author"]`},
	{`span.author`},
	{`a[rel="author"]`},
}

var datePatterns = []metaPattern{
	{`meta[property="article:published_time"]`},
	{`meta[name="publishdate"]`},
	{`meta[name="date"]`},
	{`time.published`},
	{`time`},
}

var descriptionPatterns = []metaPattern{
	{`meta[name="description"]`},
	{`meta[property="og:description"]`},
	{`meta[name="twitter:description"]`},
}

// Extractor produces ExtractedArticle records from raw markup.
type Extractor struct {
	log *zap.SugaredLogger
}

// New constructs an extractor.
func New(log *zap.SugaredLogger) *Extractor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Extractor{log: log}
}

// Extract isolates the article title and body markup via the readability
// algorithm and resolves metadata through per-field priority lists. Missing
// metadata is never an error.
func (e *Extractor) Extract(markup, baseURL string) (*domain.ExtractedArticle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	article := &domain.ExtractedArticle{
		Author:      firstMatch(doc, authorPatterns),
		PublishDate: firstMatch(doc, datePatterns),
		Description: firstMatch(doc, descriptionPatterns),
	}

	parsed, perr := url.Parse(baseURL)
	if perr == nil {
		if readable, rerr := readability.FromReader(strings.NewReader(markup), parsed); rerr == nil && strings.TrimSpace(readable.Content) != "" {
			article.Title = strings.TrimSpace(readable.Title)
			article.BodyMarkup = readable.Content
		} else if rerr != nil {
			e.log.Warnw("readability extraction failed, falling back to raw markup", "url", baseURL, "error", rerr)
		}
	}

	// Readability choking on a page must not kill the run; the converter can
	// still work over the full document.
	if article.BodyMarkup == "" {
		article.BodyMarkup = markup
	}
	if article.Title == "" {
		article.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return article, nil
}

// ProbeTextLength runs a trial readability pass and reports the visible text
// length, used by the fetcher to decide whether a page needs heavy rendering.
func ProbeTextLength(markup, baseURL string) int {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return 0
	}
	article, err := readability.FromReader(strings.NewReader(markup), parsed)
	if err != nil {
		return 0
	}
	return len(strings.TrimSpace(article.TextContent))
}

// firstMatch walks the priority list and returns the first non-empty value.
func firstMatch(doc *goquery.Document, patterns []metaPattern) string {
	for _, p := range patterns {
		node := doc.Find(p.selector).First()
		if node.Length() == 0 {
			continue
		}
		if val, ok := node.Attr("content"); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
		if val, ok := node.Attr("datetime"); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return ""
}
