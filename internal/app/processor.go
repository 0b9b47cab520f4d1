// Package app wires the pipeline stages together and runs a URL from fetch
// to finished note.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/internal/config"
	"github.com/RookieDBA/transknowledge/internal/domain"
	"github.com/RookieDBA/transknowledge/internal/extract"
	"github.com/RookieDBA/transknowledge/internal/fetch"
	"github.com/RookieDBA/transknowledge/internal/images"
	"github.com/RookieDBA/transknowledge/internal/markdown"
	"github.com/RookieDBA/transknowledge/internal/translate"
	"github.com/RookieDBA/transknowledge/internal/vault"
	"github.com/RookieDBA/transknowledge/pkg/httpclient"
)

// Processor runs a source URL through fetch, extraction, Markdown
// conversion, translation, and image relocation.
type Processor struct {
	fetcher    *fetch.Fetcher
	extractor  *extract.Extractor
	converter  *markdown.Converter
	collector  *markdown.ImageCollector
	engine     *translate.Engine
	downloader *images.Downloader
	writer     *vault.Writer
	cfg        *config.Config
	log        *zap.SugaredLogger
}

// NewProcessor builds the pipeline from configuration. A missing Chrome
// binary disables rendering instead of failing.
func NewProcessor(cfg *config.Config, log *zap.SugaredLogger) (*Processor, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	client := httpclient.NewRestyClient(cfg.FetchTimeout)

	var renderer fetch.Renderer
	if cfg.RenderEnabled {
		r, err := fetch.NewChromeRenderer(fetch.RenderOptions{
			Timeout:         cfg.RenderTimeout,
			SettleDelay:     cfg.RenderSettle,
			ContentHosts:    cfg.RenderContentHosts,
			MinContentChars: cfg.RenderMinContent,
			ChromePath:      cfg.ChromePath,
			UserAgent:       cfg.UserAgent,
		}, log)
		if err != nil {
			log.Warnw("heavy rendering unavailable", "error", err)
		} else {
			renderer = r
		}
	}

	backend, err := translate.NewDeepSeekBackend(cfg.APIKey, cfg.APIBaseURL, cfg.Model, cfg.MaxTokens, cfg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("translation backend: %w", err)
	}

	return &Processor{
		fetcher: fetch.New(client, renderer, fetch.Options{
			UserAgent:       cfg.UserAgent,
			RenderDomains:   cfg.RenderDomains,
			MinContentChars: cfg.RenderMinContent,
		}, log),
		extractor: extract.New(log),
		converter: markdown.NewConverter(log),
		collector: markdown.NewImageCollector(cfg.ImageNoiseMarkers, cfg.ImageContentPathHints, log),
		engine: translate.NewEngine(backend, translate.Options{
			SourceLanguage: cfg.SourceLanguage,
			TargetLanguage: cfg.TargetLanguage,
			ChunkSize:      cfg.ChunkSize,
		}, log),
		downloader: images.New(client, images.Options{
			MaxSizeMB:      cfg.ImageMaxSizeMB,
			AllowedFormats: cfg.ImageFormats,
			Concurrency:    cfg.ImageConcurrency,
			FilenamePrefix: cfg.ImagePrefix,
			UserAgent:      cfg.UserAgent,
		}, log),
		writer: vault.NewWriter(cfg.VaultPath, cfg.ArticlesFolder, cfg.AttachmentsFolder, log),
		cfg:    cfg,
		log:    log,
	}, nil
}

// Writer exposes the vault writer so callers can persist the note.
func (p *Processor) Writer() *vault.Writer { return p.writer }

// ValidateURL rejects anything that is not an absolute http or https URL.
func ValidateURL(rawurl string) error {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// ProcessURL runs the full pipeline and returns the assembled note record.
// Image downloading only happens when a vault path is configured.
func (p *Processor) ProcessURL(ctx context.Context, rawurl string) (*domain.NoteRecord, error) {
	if err := ValidateURL(rawurl); err != nil {
		return nil, err
	}

	p.log.Infow("fetching article", "url", rawurl)
	page, err := p.fetcher.Fetch(ctx, rawurl)
	if err != nil {
		return nil, err
	}

	doc, err := p.buildDocument(page)
	if err != nil {
		return nil, err
	}

	p.log.Infow("translating", "title", doc.Title, "body_len", len(doc.BodyMarkdown), "images", len(doc.ImageURLs))
	translatedTitle := p.engine.Translate(ctx, doc.Title, false)
	translatedBody := p.engine.Translate(ctx, doc.BodyMarkdown, true)

	rec := &domain.NoteRecord{
		Title:          translatedTitle,
		OriginalTitle:  doc.Title,
		Content:        translatedBody,
		SourceURL:      rawurl,
		Author:         doc.Author,
		PublishDate:    doc.PublishDate,
		TranslatedDate: time.Now().Format(time.RFC3339),
		Tags:           []string{"translation", "article"},
		Description:    doc.Description,
	}
	if rec.Author == "" {
		rec.Author = "Unknown"
	}

	if p.cfg.VaultPath != "" && len(doc.ImageURLs) > 0 {
		slug := vault.Slugify(doc.Title)
		results := p.downloader.DownloadAll(ctx, doc.ImageURLs, p.writer.AttachmentsDir(), slug)
		rec.Content = vault.RewriteImageEmbeds(rec.Content, results, p.writer.AttachmentsFolder())
		for _, r := range results {
			if r.Success {
				rec.Images = append(rec.Images, r.Filename)
			}
		}
	}

	return rec, nil
}

// buildDocument runs extraction and conversion over a fetched page.
func (p *Processor) buildDocument(page *fetch.Result) (*domain.ArticleDocument, error) {
	article, err := p.extractor.Extract(page.Markup, page.EffectiveBaseURL)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	p.log.Infow("article extracted", "title", article.Title, "rendered", page.Rendered)

	body, err := p.converter.Convert(article.BodyMarkup, page.EffectiveBaseURL)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	return &domain.ArticleDocument{
		Title:        article.Title,
		BodyMarkdown: body,
		ImageURLs:    p.collector.Collect(article.BodyMarkup, page.EffectiveBaseURL),
		Author:       article.Author,
		PublishDate:  article.PublishDate,
		Description:  article.Description,
	}, nil
}
