// Package images downloads article images into a vault attachments folder,
// validating type and size along the way.
package images

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/internal/domain"
	"github.com/RookieDBA/transknowledge/internal/markdown"
	"github.com/RookieDBA/transknowledge/pkg/httpclient"
)

const browserAccept = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"

var contentTypeExt = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

// Options tunes the downloader.
type Options struct {
	MaxSizeMB      int
	AllowedFormats []string
	Concurrency    int
	FilenamePrefix string
	UserAgent      string
}

// Downloader fetches images concurrently. Individual failures never abort
// the batch; each input URL produces exactly one result.
type Downloader struct {
	client httpclient.Client
	opts   Options
	log    *zap.SugaredLogger
}

func New(client httpclient.Client, opts Options, log *zap.SugaredLogger) *Downloader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if len(opts.AllowedFormats) == 0 {
		opts.AllowedFormats = []string{"jpg", "jpeg", "png", "gif", "webp", "svg"}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.FilenamePrefix == "" {
		opts.FilenamePrefix = "img"
	}
	return &Downloader{client: client, opts: opts, log: log}
}

// DownloadAll fetches urls into dir using slug-based filenames. Results are
// returned in input order, one per URL.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, dir, slug string) []domain.ImageResult {
	results := make([]domain.ImageResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		for i, u := range urls {
			results[i] = domain.ImageResult{URL: u, Err: fmt.Sprintf("create attachments dir: %v", err)}
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := d.opts.Concurrency
	if workers > len(urls) {
		workers = len(urls)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = d.downloadOne(ctx, urls[i], dir, slug, i)
			}
		}()
	}
	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	d.log.Infow("image download finished", "total", len(urls), "succeeded", ok)
	return results
}

func (d *Downloader) downloadOne(ctx context.Context, rawurl, dir, slug string, idx int) domain.ImageResult {
	res := domain.ImageResult{URL: rawurl, RealURL: rawurl}

	if real, ok := markdown.UnwrapOptimizerURL(rawurl); ok {
		res.RealURL = real
	}

	resp, err := d.client.Get(ctx, res.RealURL, d.headers(res.RealURL))
	if err != nil {
		res.Err = fmt.Sprintf("request failed: %v", err)
		d.log.Warnw("image download failed", "url", res.RealURL, "error", err)
		return res
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		res.Err = fmt.Sprintf("unexpected status %d", code)
		return res
	}

	body := resp.Body()
	maxBytes := d.opts.MaxSizeMB * 1024 * 1024
	if len(body) > maxBytes {
		res.Err = fmt.Sprintf("image too large: %d bytes (limit %d MB)", len(body), d.opts.MaxSizeMB)
		return res
	}

	ext := d.fileExtension(res.RealURL, resp.Header("Content-Type"))
	if ext == "" {
		res.Err = "could not determine image format"
		return res
	}
	if !d.allowedFormat(ext) {
		res.Err = fmt.Sprintf("format %q not allowed", ext)
		return res
	}
	if !looksLikeImage(body, ext) {
		res.Err = "response body is not an image"
		return res
	}

	res.Filename = fmt.Sprintf("%s_%s_%03d.%s", d.opts.FilenamePrefix, slug, idx+1, ext)
	res.Filepath = filepath.Join(dir, res.Filename)
	if err := os.WriteFile(res.Filepath, body, 0o644); err != nil {
		res.Err = fmt.Sprintf("write file: %v", err)
		return res
	}

	res.Success = true
	return res
}

func (d *Downloader) headers(rawurl string) map[string]string {
	h := map[string]string{"Accept": browserAccept}
	if d.opts.UserAgent != "" {
		h["User-Agent"] = d.opts.UserAgent
	}
	if u, err := url.Parse(rawurl); err == nil && u.Host != "" {
		h["Referer"] = u.Scheme + "://" + u.Host + "/"
	}
	return h
}

// fileExtension prefers the URL path extension and falls back to the
// response content type. An empty result means the format could not be
// established and the image is rejected rather than saved mislabeled.
func (d *Downloader) fileExtension(rawurl, contentType string) string {
	if u, err := url.Parse(rawurl); err == nil {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(u.Path)), ".")
		if ext != "" && d.allowedFormat(ext) {
			return ext
		}
	}
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ext, ok := contentTypeExt[ct]; ok {
		return ext
	}
	return ""
}

func (d *Downloader) allowedFormat(ext string) bool {
	for _, f := range d.opts.AllowedFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

// looksLikeImage sniffs the body. SVG is text and is accepted by extension.
func looksLikeImage(body []byte, ext string) bool {
	if ext == "svg" {
		return true
	}
	return strings.HasPrefix(http.DetectContentType(body), "image/")
}
