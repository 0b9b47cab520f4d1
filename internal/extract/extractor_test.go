package extract

import (
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback Title</title>
  <meta name="author" content="Jane Roe">
  <meta property="article:published_time" content="2026-01-15T10:00:00Z">
  <meta name="description" content="A piece about pipelines.">
  <meta property="og:description" content="OG description, lower priority.">
</head>
<body>
  <article>
    <h1>Understanding Pipelines</h1>
    <p>Pipelines move data from one stage to the next. This paragraph, along
    with its siblings, exists so the content-density algorithm has enough
    prose to latch onto when deciding what the primary article subtree is.</p>
    <p>Each stage transforms its input and hands the result downstream.
    Stages are independent, testable, and composable, which keeps the whole
    system easy to reason about even as it grows new capabilities.</p>
    <p>Finally, a pipeline is only as reliable as its error handling. A stage
    that fails loudly and early is far easier to operate than one that
    swallows its problems and corrupts data silently downstream.</p>
  </article>
</body>
</html>`

func TestExtractResolvesMetadata(t *testing.T) {
	e := New(nil)
	article, err := e.Extract(articleHTML, "https://example.com/post")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if article.Author != "Jane Roe" {
		t.Fatalf("author: got %q", article.Author)
	}
	if article.PublishDate != "2026-01-15T10:00:00Z" {
		t.Fatalf("publish date: got %q", article.PublishDate)
	}
	if article.Description != "A piece about pipelines." {
		t.Fatalf("description should prefer meta[name=description], got %q", article.Description)
	}
	if !strings.Contains(article.BodyMarkup, "Pipelines move data") {
		t.Fatalf("body markup missing article text: %q", article.BodyMarkup)
	}
	if article.Title == "" {
		t.Fatal("expected a title")
	}
}

func TestExtractMetadataPriorities(t *testing.T) {
	html := `<html><head>
	  <meta property="article:author" content="Meta Author">
	</head><body>
	  <span class="author">Span Author</span>
	  <time datetime="2025-12-01">December 1st</time>
	</body></html>`

	e := New(nil)
	article, err := e.Extract(html, "https://example.com/x")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if article.Author != "Meta Author" {
		t.Fatalf("meta tag should win over span, got %q", article.Author)
	}
	if article.PublishDate != "2025-12-01" {
		t.Fatalf("datetime attribute should win over element text, got %q", article.PublishDate)
	}
	if article.Description != "" {
		t.Fatalf("missing description must stay empty, got %q", article.Description)
	}
}

func TestExtractAuthorFromSpan(t *testing.T) {
	html := `<html><body><span class="author">Solo Writer</span><p>text</p></body></html>`

	e := New(nil)
	article, err := e.Extract(html, "https://example.com/x")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.Author != "Solo Writer" {
		t.Fatalf("got %q", article.Author)
	}
}

func TestExtractFallsBackToRawMarkup(t *testing.T) {
	html := `<html><head><title>Thin Page</title></head><body><p>tiny</p></body></html>`

	e := New(nil)
	article, err := e.Extract(html, "https://example.com/thin")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.BodyMarkup == "" {
		t.Fatal("body markup must never be empty")
	}
	if article.Title != "Thin Page" {
		t.Fatalf("expected title element fallback, got %q", article.Title)
	}
}

func TestProbeTextLength(t *testing.T) {
	long := ProbeTextLength(articleHTML, "https://example.com/post")
	if long < 300 {
		t.Fatalf("expected substantial visible text, got %d", long)
	}

	short := ProbeTextLength(`<html><body><p>hi</p></body></html>`, "https://example.com/x")
	if short >= 500 {
		t.Fatalf("expected short probe, got %d", short)
	}
}
