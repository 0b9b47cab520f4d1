package markdown

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	pythonRe    = regexp.MustCompile(`\bdef\s+\w+\s*\(|\bimport\s+\w+`)
	jsRe        = regexp.MustCompile(`\bfunction\s+\w+\s*\(|\bconst\s+\w+\s*=`)
	shellRe     = regexp.MustCompile(`\b(echo|cd|ls|pwd|git)\s+`)
	htmlOpenRe  = regexp.MustCompile(`<\w+[^>]*>`)
	htmlCloseRe = regexp.MustCompile(`</\w+>`)
)

// DetectLanguage guesses a fence language tag from code content. Returns ""
// when nothing matches; precedence is fixed: json, python, javascript, bash,
// html.
func DetectLanguage(code string) string {
	trimmed := strings.TrimSpace(code)

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") && json.Valid([]byte(trimmed)) {
		return "json"
	}
	if pythonRe.MatchString(code) {
		return "python"
	}
	if jsRe.MatchString(code) {
		return "javascript"
	}
	if strings.HasPrefix(trimmed, "#!") || shellRe.MatchString(code) {
		return "bash"
	}
	if htmlOpenRe.MatchString(code) && htmlCloseRe.MatchString(code) {
		return "html"
	}
	return ""
}

// classLanguage pulls an explicit language hint from a class attribute
// (language-* or lang-*).
func classLanguage(class string) string {
	for _, cls := range strings.Fields(class) {
		if lang, ok := strings.CutPrefix(cls, "language-"); ok {
			return lang
		}
		if lang, ok := strings.CutPrefix(cls, "lang-"); ok {
			return lang
		}
	}
	return ""
}
