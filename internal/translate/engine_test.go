package translate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/RookieDBA/transknowledge/pkg/retry"
)

type stubBackend struct {
	fn    func(prompt string) (string, error)
	calls int
}

func (s *stubBackend) Complete(_ context.Context, prompt string) (string, error) {
	s.calls++
	return s.fn(prompt)
}

// promptBody extracts the text submitted for translation from a prompt.
func promptBody(prompt string) string {
	_, rest, ok := strings.Cut(prompt, "Original:\n")
	if !ok {
		return prompt
	}
	body, _, _ := strings.Cut(rest, "\n\nTranslation:")
	return body
}

func fastPolicy() retry.Policy {
	p := retry.Default()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func newTestEngine(backend Backend, opts Options) *Engine {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = fastPolicy()
	}
	if opts.InterChunkDelay == 0 {
		opts.InterChunkDelay = time.Nanosecond
	}
	return NewEngine(backend, opts, nil)
}

func TestTranslatePreservesProtectedSpans(t *testing.T) {
	backend := &stubBackend{fn: func(prompt string) (string, error) {
		// An "eager" translator that would mangle anything it sees.
		return strings.ToUpper(promptBody(prompt)), nil
	}}
	e := newTestEngine(backend, Options{})

	text := "hello `keep me` and https://example.com/path end"
	got := e.Translate(context.Background(), text, true)

	if !strings.Contains(got, "`keep me`") {
		t.Fatalf("inline code not restored verbatim: %q", got)
	}
	if !strings.Contains(got, "https://example.com/path") {
		t.Fatalf("URL not restored verbatim: %q", got)
	}
	if !strings.Contains(got, "HELLO") {
		t.Fatalf("prose was not translated: %q", got)
	}
}

func TestTranslateWithoutPreserveSendsRawText(t *testing.T) {
	var seen string
	backend := &stubBackend{fn: func(prompt string) (string, error) {
		seen = promptBody(prompt)
		return "translated title", nil
	}}
	e := newTestEngine(backend, Options{})

	got := e.Translate(context.Background(), "A `Title` With Code", false)
	if got != "translated title" {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(seen, "`Title`") {
		t.Fatalf("title text should reach the backend unprotected, saw %q", seen)
	}
}

func TestTranslateEmptyInputPassthrough(t *testing.T) {
	backend := &stubBackend{fn: func(string) (string, error) {
		t.Fatal("backend must not be called for blank input")
		return "", nil
	}}
	e := newTestEngine(backend, Options{})

	if got := e.Translate(context.Background(), "   \n", true); got != "   \n" {
		t.Fatalf("blank input must pass through, got %q", got)
	}
}

func TestTranslateChunkedKeepsFailedChunkInPlace(t *testing.T) {
	paras := []string{
		strings.Repeat("first ", 20),
		strings.Repeat("second ", 20),
		strings.Repeat("third ", 20),
	}
	text := strings.Join(paras, "\n\n")

	backend := &stubBackend{fn: func(prompt string) (string, error) {
		body := promptBody(prompt)
		if strings.Contains(body, "second") {
			return "", errors.New("permanent failure")
		}
		return "OK:" + strings.Fields(body)[0], nil
	}}
	e := newTestEngine(backend, Options{ChunkSize: 150})

	got := e.Translate(context.Background(), text, false)
	parts := strings.Split(got, "\n\n")
	if len(parts) != 3 {
		t.Fatalf("expected three rejoined chunks, got %d: %q", len(parts), got)
	}
	if parts[0] != "OK:first" || parts[2] != "OK:third" {
		t.Fatalf("surrounding chunks not translated: %q", got)
	}
	if !strings.Contains(parts[1], "second") {
		t.Fatalf("failed chunk must keep original text: %q", parts[1])
	}
}

func TestTranslateEmptyResponseKeepsOriginal(t *testing.T) {
	backend := &stubBackend{fn: func(string) (string, error) {
		return "   ", nil
	}}
	e := newTestEngine(backend, Options{})

	text := "some content"
	if got := e.Translate(context.Background(), text, false); got != text {
		t.Fatalf("empty backend response must keep original, got %q", got)
	}
	if backend.calls != 1 {
		t.Fatalf("empty response is not retryable, got %d calls", backend.calls)
	}
}

func TestTranslateRetriesTransientErrors(t *testing.T) {
	backend := &stubBackend{fn: func(string) (string, error) {
		return "", &BackendError{Status: 503, Err: errors.New("upstream down")}
	}}
	e := newTestEngine(backend, Options{})

	text := "content"
	if got := e.Translate(context.Background(), text, false); got != text {
		t.Fatalf("exhausted retries must keep original, got %q", got)
	}
	if backend.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", backend.calls)
	}
}

func TestTranslateRecoversAfterRateLimit(t *testing.T) {
	var cooldowns []time.Duration
	policy := retry.Default()
	policy.Retryable = func(err error) bool { return IsRateLimit(err) || IsTransient(err) }
	policy.Cooldown = func(err error) time.Duration {
		if IsRateLimit(err) {
			return rateLimitCooldown
		}
		return 0
	}
	policy.Sleep = func(_ context.Context, d time.Duration) error {
		cooldowns = append(cooldowns, d)
		return nil
	}

	first := true
	backend := &stubBackend{fn: func(prompt string) (string, error) {
		if first {
			first = false
			return "", &BackendError{Status: 429, Err: errors.New("rate limited")}
		}
		return "done", nil
	}}
	e := newTestEngine(backend, Options{Retry: policy, InterChunkDelay: time.Nanosecond})

	if got := e.Translate(context.Background(), "content", false); got != "done" {
		t.Fatalf("got %q", got)
	}
	if backend.calls != 2 {
		t.Fatalf("expected retry after rate limit, got %d calls", backend.calls)
	}
	found := false
	for _, d := range cooldowns {
		if d == rateLimitCooldown {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a %v cooldown wait, saw %v", rateLimitCooldown, cooldowns)
	}
}
