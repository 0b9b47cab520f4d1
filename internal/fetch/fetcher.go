// Package fetch retrieves article markup, escalating from a plain HTTP
// request to a headless browser render when the light fetch yields too
// little readable content.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/internal/extract"
	"github.com/RookieDBA/transknowledge/pkg/httpclient"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Result is a fetched page. EffectiveBaseURL differs from the requested URL
// when rendering surfaced an embedded document as the real content.
type Result struct {
	Markup           string
	EffectiveBaseURL string
	Rendered         bool
}

// FetchError reports a failed page retrieval.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Renderer loads a page in a real browser and returns the settled markup.
type Renderer interface {
	Render(ctx context.Context, url string) (*Result, error)
}

// Options tunes fetch behavior.
type Options struct {
	UserAgent string

	// RenderDomains always go through the renderer, without probing.
	RenderDomains []string

	// MinContentChars is the readable-text threshold below which a light
	// fetch is considered thin and the renderer is tried.
	MinContentChars int

	// Probe measures the readable text length of fetched markup. Nil uses
	// the extractor's probe.
	Probe func(markup, baseURL string) int
}

// Fetcher tries a light HTTP fetch first and falls back to browser
// rendering for pages that need it. A nil renderer disables rendering.
type Fetcher struct {
	client   httpclient.Client
	renderer Renderer
	opts     Options
	log      *zap.SugaredLogger
}

func New(client httpclient.Client, renderer Renderer, opts Options, log *zap.SugaredLogger) *Fetcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MinContentChars <= 0 {
		opts.MinContentChars = 500
	}
	if opts.Probe == nil {
		opts.Probe = extract.ProbeTextLength
	}
	return &Fetcher{client: client, renderer: renderer, opts: opts, log: log}
}

// Fetch retrieves the page at rawurl. Render failures are not fatal: the
// light fetch result is kept and a warning logged.
func (f *Fetcher) Fetch(ctx context.Context, rawurl string) (*Result, error) {
	light, err := f.fetchLight(ctx, rawurl)
	if err != nil {
		return nil, err
	}

	if f.renderer == nil || !f.shouldRender(rawurl, light.Markup) {
		return light, nil
	}

	f.log.Infow("page needs browser rendering", "url", rawurl)
	rendered, rerr := f.renderer.Render(ctx, rawurl)
	if rerr != nil {
		f.log.Warnw("browser render failed, using light fetch", "url", rawurl, "error", rerr)
		return light, nil
	}
	return rendered, nil
}

func (f *Fetcher) fetchLight(ctx context.Context, rawurl string) (*Result, error) {
	headers := map[string]string{
		"User-Agent":      f.opts.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9,zh-CN;q=0.8",
	}

	resp, err := f.client.Get(ctx, rawurl, headers)
	if err != nil {
		return nil, &FetchError{URL: rawurl, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &FetchError{URL: rawurl, Err: fmt.Errorf("unexpected status %d", code)}
	}
	return &Result{Markup: string(resp.Body()), EffectiveBaseURL: rawurl}, nil
}

func (f *Fetcher) shouldRender(rawurl, markup string) bool {
	if host := hostOf(rawurl); host != "" {
		for _, d := range f.opts.RenderDomains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
	}
	length := f.opts.Probe(markup, rawurl)
	if length < f.opts.MinContentChars {
		f.log.Debugw("light fetch looks thin", "url", rawurl, "content_chars", length)
		return true
	}
	return false
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
