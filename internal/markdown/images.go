package markdown

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Default noise filtering knobs. The override precedence (logo/icon markers
// are kept when the path also looks content-ish) is the documented contract,
// not proven-optimal; both lists are configurable.
var (
	DefaultNoiseMarkers     = []string{"logo", "icon", "avatar", "gravatar", "tracking", "ad.", "advertisement", ".gif?"}
	DefaultContentPathHints = []string{"/content/", "/article/", "/post/", "/image/"}
)

var knownImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

// ImageCollector walks body markup for image references.
type ImageCollector struct {
	NoiseMarkers     []string
	ContentPathHints []string
	log              *zap.SugaredLogger
}

// NewImageCollector builds a collector with the given filter lists; nil lists
// fall back to the defaults.
func NewImageCollector(noiseMarkers, contentPathHints []string, log *zap.SugaredLogger) *ImageCollector {
	if noiseMarkers == nil {
		noiseMarkers = DefaultNoiseMarkers
	}
	if contentPathHints == nil {
		contentPathHints = DefaultContentPathHints
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ImageCollector{NoiseMarkers: noiseMarkers, ContentPathHints: contentPathHints, log: log}
}

// Collect returns the article's image URLs, resolved absolute, noise
// filtered, and deduplicated preserving first-seen order.
func (c *ImageCollector) Collect(bodyMarkup, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyMarkup))
	if err != nil {
		c.log.Warnw("image collection: parse failed", "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := firstAttr(s, "src", "data-src", "data-lazy-src")
		if src == "" {
			return
		}
		absolute := resolveURL(src, baseURL)
		if !c.isValidImageURL(absolute) {
			return
		}
		if _, ok := seen[absolute]; ok {
			return
		}
		seen[absolute] = struct{}{}
		urls = append(urls, absolute)
	})

	c.log.Debugw("collected image urls", "count", len(urls))
	return urls
}

// isValidImageURL rejects data URLs and known-noise assets. The logo/icon
// markers are overridden when the URL path contains a content-ish segment,
// since icon-named assets inside article paths are usually real figures.
func (c *ImageCollector) isValidImageURL(rawurl string) bool {
	if strings.HasPrefix(rawurl, "data:") {
		return false
	}

	lowered := strings.ToLower(rawurl)
	for _, marker := range c.NoiseMarkers {
		if !strings.Contains(lowered, marker) {
			continue
		}
		if marker == "logo" || marker == "icon" {
			if parsed, err := url.Parse(lowered); err == nil && c.hasContentPath(parsed.Path) {
				continue
			}
		}
		return false
	}

	for _, ext := range knownImageExtensions {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	// No extension can still be a valid image behind a CDN.
	return true
}

func (c *ImageCollector) hasContentPath(path string) bool {
	for _, hint := range c.ContentPathHints {
		if strings.Contains(path, hint) {
			return true
		}
	}
	return false
}

// UnwrapOptimizerURL extracts the real image URL from an image-optimization
// redirector such as Next.js's /_next/image?url=<encoded>. Ordinary URLs
// pass through unchanged; the second return reports whether unwrapping
// happened. Callers must keep the wrapped original around, since that is the
// literal string appearing in the Markdown.
func UnwrapOptimizerURL(rawurl string) (string, bool) {
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return rawurl, false
	}
	if !strings.Contains(parsed.Path, "/_next/image") {
		return rawurl, false
	}
	real := parsed.Query().Get("url")
	if real == "" {
		return rawurl, false
	}
	return real, true
}
