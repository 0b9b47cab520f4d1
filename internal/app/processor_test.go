package app

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/RookieDBA/transknowledge/internal/config"
	"github.com/RookieDBA/transknowledge/internal/extract"
	"github.com/RookieDBA/transknowledge/internal/fetch"
	"github.com/RookieDBA/transknowledge/internal/images"
	"github.com/RookieDBA/transknowledge/internal/markdown"
	"github.com/RookieDBA/transknowledge/internal/translate"
	"github.com/RookieDBA/transknowledge/internal/vault"
	"github.com/RookieDBA/transknowledge/pkg/httpclient"
)

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com/post",
		"http://example.com",
		" https://example.com/spaces ",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v", u, err)
		}
	}

	invalid := []string{
		"",
		"example.com/post",
		"ftp://example.com/file",
		"file:///etc/passwd",
		"/relative/path",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) should fail", u)
		}
	}
}

type stubResponse struct {
	body        []byte
	status      int
	contentType string
}

func (s *stubResponse) Body() []byte    { return s.body }
func (s *stubResponse) StatusCode() int { return s.status }
func (s *stubResponse) Header(key string) string {
	if key == "Content-Type" {
		return s.contentType
	}
	return ""
}

type stubClient struct {
	byURL map[string]*stubResponse
}

func (s *stubClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	if resp, ok := s.byURL[url]; ok {
		return resp, nil
	}
	return &stubResponse{body: []byte("nope"), status: 404}, nil
}

type echoBackend struct{}

func (echoBackend) Complete(_ context.Context, prompt string) (string, error) {
	_, rest, _ := strings.Cut(prompt, "Original:\n")
	body, _, _ := strings.Cut(rest, "\n\nTranslation:")
	return "[zh] " + body, nil
}

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

func articlePage() string {
	text := strings.Repeat("This sentence pads the article body with readable prose. ", 20)
	return `<html><head><title>Testing in Production</title>
<meta name="author" content="Sam Writer"></head>
<body><article><h1>Testing in Production</h1>
<p>` + text + `</p>
<img src="https://cdn.example.com/figure.png" alt="figure">
<p>` + text + `</p>
</article></body></html>`
}

func newTestProcessor(t *testing.T, vaultDir string) *Processor {
	t.Helper()

	client := &stubClient{byURL: map[string]*stubResponse{
		"https://example.com/post":           {body: []byte(articlePage()), status: 200},
		"https://cdn.example.com/figure.png": {body: pngBytes, status: 200, contentType: "image/png"},
	}}

	cfg := &config.Config{VaultPath: vaultDir, TargetLanguage: "Chinese"}

	return &Processor{
		fetcher:    fetch.New(client, nil, fetch.Options{}, nil),
		extractor:  extract.New(nil),
		converter:  markdown.NewConverter(nil),
		collector:  markdown.NewImageCollector(nil, nil, nil),
		engine:     translate.NewEngine(echoBackend{}, translate.Options{TargetLanguage: "Chinese"}, nil),
		downloader: images.New(client, images.Options{}, nil),
		writer:     vault.NewWriter(vaultDir, "", "", nil),
		cfg:        cfg,
		log:        zap.NewNop().Sugar(),
	}
}

func TestProcessURLEndToEnd(t *testing.T) {
	dir := t.TempDir()
	p := newTestProcessor(t, dir)

	rec, err := p.ProcessURL(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if rec.OriginalTitle != "Testing in Production" {
		t.Fatalf("original title = %q", rec.OriginalTitle)
	}
	if !strings.HasPrefix(rec.Title, "[zh]") {
		t.Fatalf("title not translated: %q", rec.Title)
	}
	if rec.Author != "Sam Writer" {
		t.Fatalf("author = %q", rec.Author)
	}
	if rec.SourceURL != "https://example.com/post" {
		t.Fatalf("source url = %q", rec.SourceURL)
	}
	if len(rec.Images) != 1 {
		t.Fatalf("expected one downloaded image, got %v", rec.Images)
	}
	if !strings.Contains(rec.Content, "![[Attachments/"+rec.Images[0]+"]]") {
		t.Fatalf("image embed not rewritten:\n%s", rec.Content)
	}
	if strings.Contains(rec.Content, "cdn.example.com/figure.png") {
		t.Fatalf("remote image URL left in content:\n%s", rec.Content)
	}
}

func TestProcessURLWithoutVaultSkipsImages(t *testing.T) {
	p := newTestProcessor(t, "")

	rec, err := p.ProcessURL(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(rec.Images) != 0 {
		t.Fatalf("no vault configured, images = %v", rec.Images)
	}
	if !strings.Contains(rec.Content, "cdn.example.com/figure.png") {
		t.Fatal("remote image reference should remain without a vault")
	}
}

func TestProcessURLInvalidInput(t *testing.T) {
	p := newTestProcessor(t, "")
	if _, err := p.ProcessURL(context.Background(), "not-a-url"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestProcessURLDefaultsAuthor(t *testing.T) {
	dir := t.TempDir()
	page := `<html><head><title>No Byline</title></head><body><article><p>` +
		strings.Repeat("Readable body text for the extractor to keep. ", 30) +
		`</p></article></body></html>`
	client := &stubClient{byURL: map[string]*stubResponse{
		"https://example.com/anon": {body: []byte(page), status: 200},
	}}

	p := newTestProcessor(t, dir)
	p.fetcher = fetch.New(client, nil, fetch.Options{}, nil)

	rec, err := p.ProcessURL(context.Background(), "https://example.com/anon")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Author != "Unknown" {
		t.Fatalf("author = %q", rec.Author)
	}
}
