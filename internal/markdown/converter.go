// Package markdown converts extracted article markup into normalized
// Markdown and collects the image URLs referenced by it.
package markdown

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Converter turns article body markup into Markdown with fenced, language
// tagged code blocks and pipe tables.
type Converter struct {
	conv *converter.Converter
	log  *zap.SugaredLogger
}

// NewConverter builds a converter with commonmark and table support.
func NewConverter(log *zap.SugaredLogger) *Converter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv, log: log}
}

// Convert produces Markdown from body markup. Order matters: image sources
// are absolutized and code blocks language-tagged before the generic
// transform, then indentation and table artifacts are repaired afterwards.
func (c *Converter) Convert(bodyMarkup, baseURL string) (string, error) {
	prepared, err := preprocess(bodyMarkup, baseURL)
	if err != nil {
		return "", err
	}

	md, err := c.conv.ConvertString(prepared)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	return PostProcess(md), nil
}

// preprocess absolutizes image references against baseURL and annotates
// pre/code blocks with a language class the Markdown transform will emit as
// a fence tag.
func preprocess(markup, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := firstAttr(s, "src", "data-src", "data-lazy-src")
		if src == "" {
			return
		}
		s.SetAttr("src", resolveURL(src, baseURL))
	})

	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		code := s.Find("code").First()

		lang := ""
		if code.Length() > 0 {
			lang = classLanguage(code.AttrOr("class", ""))
		}
		if lang == "" {
			lang = classLanguage(s.AttrOr("class", ""))
		}

		text := s.Text()
		if code.Length() > 0 {
			text = code.Text()
		}
		if lang == "" {
			lang = DetectLanguage(text)
		}

		// Re-emit as a canonical pre > code structure so the fence tag is
		// picked up regardless of how the source page nested things.
		class := ""
		if lang != "" {
			class = fmt.Sprintf(` class="language-%s"`, lang)
		}
		s.SetHtml(fmt.Sprintf("<code%s>%s</code>", class, html.EscapeString(text)))
	})

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize html: %w", err)
	}
	return out, nil
}

// PostProcess repairs Markdown artifacts: indented code runs become fenced
// blocks, pipe-table lines are normalized, and blank-line noise collapses.
// Running it on already-normalized Markdown is a no-op.
func PostProcess(md string) string {
	md = refenceIndentedCode(md)
	md = fixTableFormat(md)
	return collapseBlankLines(md)
}

// refenceIndentedCode rewrites runs of 4-space-indented lines that are not
// list continuations as fenced code blocks with a detected language tag.
func refenceIndentedCode(md string) string {
	lines := strings.Split(md, "\n")
	var out []string
	var block []string
	inFence := false

	flush := func() {
		if len(block) == 0 {
			return
		}
		lang := DetectLanguage(strings.Join(block, "\n"))
		out = append(out, "```"+lang)
		out = append(out, block...)
		out = append(out, "```", "")
		block = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			flush()
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if !inFence && isIndentedCode(line, out) {
			block = append(block, strings.TrimPrefix(line, "    "))
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()

	return strings.Join(out, "\n")
}

// isIndentedCode reports whether line belongs to an indented code run rather
// than a list continuation.
func isIndentedCode(line string, emitted []string) bool {
	if !strings.HasPrefix(line, "    ") {
		return false
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "+") {
		return false
	}
	if len(emitted) > 0 {
		prev := strings.TrimSpace(emitted[len(emitted)-1])
		if strings.HasPrefix(prev, "-") || strings.HasPrefix(prev, "*") || strings.HasPrefix(prev, "1.") {
			return false
		}
	}
	return true
}

// fixTableFormat trims trailing whitespace from pipe-table lines and forces
// them to end with a pipe.
func fixTableFormat(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "|") {
			continue
		}
		line = strings.TrimRight(line, " \t")
		if !strings.HasSuffix(line, "|") {
			line += "|"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// collapseBlankLines reduces runs of blank lines to a single blank line,
// leaving fenced code block interiors untouched.
func collapseBlankLines(md string) string {
	lines := strings.Split(md, "\n")
	var out []string
	inFence := false
	blank := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			out = append(out, line)
			blank = false
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// firstAttr returns the first present, non-empty attribute value.
func firstAttr(s *goquery.Selection, keys ...string) string {
	for _, key := range keys {
		if val, ok := s.Attr(key); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// resolveURL resolves ref against base, returning ref unchanged when either
// side fails to parse.
func resolveURL(ref, base string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
