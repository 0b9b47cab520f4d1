package translate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Span protection replaces non-translatable substrings with placeholder
// tokens before text reaches the backend and restores them verbatim after.
// Tokens carry a per-call random nonce so they cannot collide with anything
// the backend might produce, and they look implausible enough in prose that
// the model passes them through untouched.

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	bareURLRe    = regexp.MustCompile(`https?://[^\s)]+`)
	mdImageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	vaultEmbedRe = regexp.MustCompile(`!\[\[[^\]]+\]\]`)
)

type spanEntry struct {
	token   string
	literal string
}

// spanTable is an ordered placeholder-to-literal mapping scoped to a single
// translation call.
type spanTable struct {
	nonce   string
	entries []spanEntry
}

func newSpanTable() *spanTable {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return &spanTable{nonce: hex.EncodeToString(buf)}
}

func (t *spanTable) add(literal string) string {
	token := fmt.Sprintf("__MDSPAN_%s_%04d__", t.nonce, len(t.entries)+1)
	t.entries = append(t.entries, spanEntry{token: token, literal: literal})
	return token
}

// protect replaces protected spans with placeholders. Order is fixed: code
// fences before inline code, so a fence's interior backticks are never
// mistaken for inline spans; bare URLs before image embeds.
func protect(text string) (string, *spanTable) {
	table := newSpanTable()
	for _, re := range []*regexp.Regexp{fencedCodeRe, inlineCodeRe, bareURLRe, mdImageRe, vaultEmbedRe} {
		text = re.ReplaceAllStringFunc(text, table.add)
	}
	return text, table
}

// restore substitutes every placeholder with its recorded literal. The table
// is walked in reverse insertion order: a later span's literal can embed an
// earlier span's token (a URL inside an image embed), and reverse order
// resolves that nesting in one pass.
func (t *spanTable) restore(text string) string {
	for i := len(t.entries) - 1; i >= 0; i-- {
		text = strings.ReplaceAll(text, t.entries[i].token, t.entries[i].literal)
	}
	return text
}
