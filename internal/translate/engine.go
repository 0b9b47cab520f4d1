// Package translate splits, protects, and translates Markdown documents
// through a rate-limited text-to-text backend.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/pkg/retry"
)

const (
	defaultChunkSize       = 3000
	defaultInterChunkDelay = time.Second
	rateLimitCooldown      = 60 * time.Second
)

// Backend is the opaque text-to-text translation function.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configures the engine.
type Options struct {
	SourceLanguage  string
	TargetLanguage  string
	ChunkSize       int
	InterChunkDelay time.Duration
	Retry           retry.Policy
}

// Engine drives a document through protection, chunking, per-chunk retried
// translation, and restoration. Translation never fails the run: a chunk
// whose backend call cannot be completed keeps its original text.
type Engine struct {
	backend Backend
	opts    Options
	log     *zap.SugaredLogger
}

// NewEngine builds an engine; zero option fields get defaults matching the
// backend contract.
func NewEngine(backend Backend, opts Options, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.InterChunkDelay <= 0 {
		opts.InterChunkDelay = defaultInterChunkDelay
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Default()
	}
	if opts.Retry.Retryable == nil {
		opts.Retry.Retryable = func(err error) bool {
			return IsRateLimit(err) || IsTransient(err)
		}
	}
	if opts.Retry.Cooldown == nil {
		opts.Retry.Cooldown = func(err error) time.Duration {
			if IsRateLimit(err) {
				return rateLimitCooldown
			}
			return 0
		}
	}
	return &Engine{backend: backend, opts: opts, log: log}
}

// Translate returns the translated text. With preserveFormat set, code
// fences, inline code, bare URLs, and image embeds are protected from the
// backend and restored verbatim afterwards.
func (e *Engine) Translate(ctx context.Context, text string, preserveFormat bool) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	work := text
	var table *spanTable
	if preserveFormat {
		work, table = protect(work)
	}

	var out string
	if len(work) > e.opts.ChunkSize {
		out = e.translateChunked(ctx, work)
	} else {
		out = e.translateChunk(ctx, work)
	}

	// Failed chunks keep their original text, which may still carry
	// placeholders from the protection pass; restoration always runs.
	if table != nil {
		out = table.restore(out)
	}
	return out
}

func (e *Engine) translateChunked(ctx context.Context, text string) string {
	set := splitText(text, e.opts.ChunkSize)
	e.log.Infow("translating in chunks", "chunks", len(set.Parts), "chunk_size", e.opts.ChunkSize)

	translated := make([]string, len(set.Parts))
	for i, part := range set.Parts {
		translated[i] = e.translateChunk(ctx, part)
		if i < len(set.Parts)-1 {
			e.pause(ctx)
		}
	}
	return strings.Join(translated, set.Separator)
}

// translateChunk submits one chunk with bounded retry. On exhausted retries
// or a non-retryable failure the original text is returned so the document
// never loses content.
func (e *Engine) translateChunk(ctx context.Context, text string) string {
	prompt := e.buildPrompt(text)

	var result string
	err := e.opts.Retry.Do(ctx, func() error {
		resp, cerr := e.backend.Complete(ctx, prompt)
		if cerr != nil {
			return cerr
		}
		if strings.TrimSpace(resp) == "" {
			return ErrEmptyResponse
		}
		result = strings.TrimSpace(resp)
		return nil
	})
	if err != nil {
		e.log.Warnw("chunk translation failed, keeping original text", "error", err, "chunk_len", len(text))
		return text
	}
	return result
}

func (e *Engine) buildPrompt(text string) string {
	source := e.opts.SourceLanguage
	if source == "" {
		source = "English"
	}
	target := e.opts.TargetLanguage
	if target == "" {
		target = "Chinese"
	}

	return fmt.Sprintf(`Translate the following %s text into %s.

Requirements:
1. Preserve the original Markdown formatting: headings, lists, code blocks, links.
2. Do not translate code inside code blocks; keep it exactly as is.
3. Do not translate URLs or links.
4. Keep technical terms in the original language or add a brief gloss.
5. The translation must be accurate and read naturally in %s.
6. Return only the translated content, with no added commentary.

Original:
%s

Translation:`, source, target, target, text)
}

func (e *Engine) pause(ctx context.Context) {
	timer := time.NewTimer(e.opts.InterChunkDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
