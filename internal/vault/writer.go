// Package vault writes translated notes into an Obsidian vault with YAML
// frontmatter and wiki-style image embeds.
package vault

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/RookieDBA/transknowledge/internal/domain"
)

const maxSlugLen = 50

// frontmatter is the YAML block at the top of every note.
type frontmatter struct {
	Title          string   `yaml:"title"`
	OriginalTitle  string   `yaml:"original_title,omitempty"`
	SourceURL      string   `yaml:"source_url"`
	Author         string   `yaml:"author,omitempty"`
	PublishDate    string   `yaml:"publish_date,omitempty"`
	TranslatedDate string   `yaml:"translated_date"`
	Description    string   `yaml:"description,omitempty"`
	Tags           []string `yaml:"tags,omitempty"`
}

// Writer persists notes under vaultPath/articlesFolder and knows where the
// vault keeps attachments.
type Writer struct {
	vaultPath         string
	articlesFolder    string
	attachmentsFolder string
	log               *zap.SugaredLogger
}

func NewWriter(vaultPath, articlesFolder, attachmentsFolder string, log *zap.SugaredLogger) *Writer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if articlesFolder == "" {
		articlesFolder = "Articles/Translations"
	}
	if attachmentsFolder == "" {
		attachmentsFolder = "Attachments"
	}
	return &Writer{
		vaultPath:         vaultPath,
		articlesFolder:    articlesFolder,
		attachmentsFolder: attachmentsFolder,
		log:               log,
	}
}

// AttachmentsDir is the absolute folder image files are written into.
func (w *Writer) AttachmentsDir() string {
	return filepath.Join(w.vaultPath, w.attachmentsFolder)
}

// AttachmentsFolder is the vault-relative folder used inside embeds.
func (w *Writer) AttachmentsFolder() string { return w.attachmentsFolder }

// Save writes the note and returns its absolute path. An empty filename
// derives one from the record.
func (w *Writer) Save(rec *domain.NoteRecord, filename string) (string, error) {
	if w.vaultPath == "" {
		return "", fmt.Errorf("vault path not configured")
	}
	if filename == "" {
		filename = NoteFilename(rec.OriginalTitle, time.Now())
	}
	if !strings.HasSuffix(filename, ".md") {
		filename += ".md"
	}

	dir := filepath.Join(w.vaultPath, w.articlesFolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create articles folder: %w", err)
	}

	fm := frontmatter{
		Title:          rec.Title,
		OriginalTitle:  rec.OriginalTitle,
		SourceURL:      rec.SourceURL,
		Author:         rec.Author,
		PublishDate:    rec.PublishDate,
		TranslatedDate: rec.TranslatedDate,
		Description:    rec.Description,
		Tags:           rec.Tags,
	}
	head, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}

	content := "---\n" + string(head) + "---\n\n" + rec.Content
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}

	w.log.Infow("note saved", "path", path)
	return path, nil
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapseRe = regexp.MustCompile(`[-\s]+`)
)

// Slugify turns a title into a filesystem-safe slug, capped at 50 runes.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if runes := []rune(s); len(runes) > maxSlugLen {
		s = strings.Trim(string(runes[:maxSlugLen]), "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}

// NoteFilename builds the date-prefixed note filename.
func NoteFilename(title string, at time.Time) string {
	return fmt.Sprintf("%s_%s.md", at.Format("20060102"), Slugify(title))
}

// RewriteImageEmbeds replaces remote image references in markdown with vault
// embeds pointing at the downloaded files. Both the wrapped and the real URL
// of each successful download are rewritten, in Markdown and raw img-tag
// forms.
func RewriteImageEmbeds(md string, results []domain.ImageResult, attachmentsFolder string) string {
	for _, r := range results {
		if !r.Success || r.Filename == "" {
			continue
		}
		embed := fmt.Sprintf("![[%s/%s]]", attachmentsFolder, r.Filename)
		for _, target := range urlVariants(r) {
			md = replaceImageRef(md, target, embed)
		}
	}
	return md
}

// urlVariants lists the textual forms an image URL may take in converted
// markdown: the original, the unwrapped URL, a percent-decoded form, and
// the host-relative path.
func urlVariants(r domain.ImageResult) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, raw := range []string{r.URL, r.RealURL} {
		add(raw)
		if strings.Contains(raw, "%") {
			if dec, err := url.QueryUnescape(raw); err == nil {
				add(dec)
			}
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			rel := u.Path
			if u.RawQuery != "" {
				rel += "?" + u.RawQuery
			}
			add(rel)
		}
	}
	return out
}

func replaceImageRef(md, target, embed string) string {
	quoted := regexp.QuoteMeta(target)
	mdRe := regexp.MustCompile(`!\[[^\]]*\]\(` + quoted + `\)`)
	md = mdRe.ReplaceAllString(md, embed)
	imgRe := regexp.MustCompile(`<img[^>]*src=["']?` + quoted + `["']?[^>]*/?>`)
	return imgRe.ReplaceAllString(md, embed)
}
