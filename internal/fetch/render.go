package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// RenderOptions tunes the headless browser.
type RenderOptions struct {
	Timeout     time.Duration
	SettleDelay time.Duration

	// ContentHosts are embed hosts (code playgrounds and the like) whose
	// iframe document, when substantial, replaces the top-level page.
	ContentHosts []string

	// MinContentChars is the minimum iframe body text length for the
	// iframe to be promoted to the page content.
	MinContentChars int

	ChromePath string
	UserAgent  string
}

// ChromeRenderer loads pages in headless Chrome so script-built content is
// present in the returned markup.
type ChromeRenderer struct {
	opts RenderOptions
	log  *zap.SugaredLogger
}

var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

// NewChromeRenderer fails when no Chrome binary can be located, so callers
// can degrade to light fetching at startup rather than per page.
func NewChromeRenderer(opts RenderOptions, log *zap.SugaredLogger) (*ChromeRenderer, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	if opts.MinContentChars <= 0 {
		opts.MinContentChars = 500
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	if opts.ChromePath != "" {
		if _, err := exec.LookPath(opts.ChromePath); err != nil {
			return nil, fmt.Errorf("chrome binary %q not found: %w", opts.ChromePath, err)
		}
	} else {
		found := ""
		for _, name := range chromeBinaries {
			if path, err := exec.LookPath(name); err == nil {
				found = path
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("no chrome binary found in PATH (tried %s)", strings.Join(chromeBinaries, ", "))
		}
		opts.ChromePath = found
	}

	return &ChromeRenderer{opts: opts, log: log}, nil
}

// Render navigates to rawurl, waits for the page to settle, and returns the
// rendered markup. Settling is approximated as document readiness plus a
// fixed delay; there is no true network-idle signal in the protocol, so a
// page still streaming data after the delay is captured as-is. When a
// content-host iframe carries the real document (embedded playgrounds), its
// markup and URL are returned instead.
func (r *ChromeRenderer) Render(ctx context.Context, rawurl string) (*Result, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(r.opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	if r.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	bctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	bctx, tcancel := context.WithTimeout(bctx, r.opts.Timeout)
	defer tcancel()

	var html, finalURL string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawurl),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawurl, err)
	}
	if finalURL == "" {
		finalURL = rawurl
	}

	if markup, src, ok := r.promoteContentIframe(bctx); ok {
		r.log.Infow("using embedded document as page content", "iframe_url", src)
		return &Result{Markup: markup, EffectiveBaseURL: src, Rendered: true}, nil
	}

	return &Result{Markup: html, EffectiveBaseURL: finalURL, Rendered: true}, nil
}

// promoteContentIframe scans browser targets for an iframe served from a
// known content host whose body text is substantial enough to be the real
// article.
func (r *ChromeRenderer) promoteContentIframe(bctx context.Context) (markup, src string, ok bool) {
	if len(r.opts.ContentHosts) == 0 {
		return "", "", false
	}

	infos, err := chromedp.Targets(bctx)
	if err != nil {
		r.log.Debugw("target scan failed", "error", err)
		return "", "", false
	}

	for _, info := range infos {
		if info.Type != "iframe" || !r.isContentHost(info.URL) {
			continue
		}
		if m, ok := r.readIframe(bctx, info); ok {
			return m, info.URL, true
		}
	}
	return "", "", false
}

func (r *ChromeRenderer) readIframe(bctx context.Context, info *target.Info) (string, bool) {
	fctx, cancel := chromedp.NewContext(bctx, chromedp.WithTargetID(info.TargetID))
	defer cancel()

	var html, text string
	err := chromedp.Run(fctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		r.log.Debugw("iframe read failed", "iframe_url", info.URL, "error", err)
		return "", false
	}
	if len(strings.TrimSpace(text)) < r.opts.MinContentChars {
		return "", false
	}
	return html, true
}

func (r *ChromeRenderer) isContentHost(rawurl string) bool {
	host := hostOf(rawurl)
	if host == "" {
		return false
	}
	for _, h := range r.opts.ContentHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
