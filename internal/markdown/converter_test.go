package markdown

import (
	"strings"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		name string
		code string
		want string
	}{
		{"json", `{"key": "value", "n": 1}`, "json"},
		{"invalid json passes through", `{not json}`, ""},
		{"python def", "def handler(event):\n    return event", "python"},
		{"python import", "import os\nprint(os.sep)", "python"},
		{"javascript function", "function add(a, b) { return a + b; }", "javascript"},
		{"javascript const", "const total = items.length;", "javascript"},
		{"shebang", "#!/bin/sh\nset -e", "bash"},
		{"shell command", "git clone https://example.com/repo.git", "bash"},
		{"html", "<div class=\"x\">hello</div>", "html"},
		{"plain prose", "just some words here", ""},
	}

	for _, tc := range cases {
		if got := DetectLanguage(tc.code); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestConvertTagsCodeFences(t *testing.T) {
	html := `<article>
	  <p>Intro paragraph.</p>
	  <pre><code class="language-go">func main() {}</code></pre>
	  <pre><code>import sys
print(sys.argv)</code></pre>
	</article>`

	c := NewConverter(nil)
	md, err := c.Convert(html, "https://example.com/post")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if !strings.Contains(md, "```go") {
		t.Fatalf("explicit language class lost:\n%s", md)
	}
	if !strings.Contains(md, "```python") {
		t.Fatalf("heuristic language tag missing:\n%s", md)
	}
}

func TestConvertAbsolutizesImages(t *testing.T) {
	html := `<article><p>text</p><img src="/img/figure.png" alt="fig"></article>`

	c := NewConverter(nil)
	md, err := c.Convert(html, "https://example.com/posts/1")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(md, "https://example.com/img/figure.png") {
		t.Fatalf("image not absolutized:\n%s", md)
	}
}

func TestConvertLazyImageSource(t *testing.T) {
	html := `<article><p>text</p><img data-lazy-src="/lazy.png"></article>`

	c := NewConverter(nil)
	md, err := c.Convert(html, "https://example.com/")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(md, "https://example.com/lazy.png") {
		t.Fatalf("lazy image source not promoted:\n%s", md)
	}
}

func TestRefenceIndentedCode(t *testing.T) {
	md := "Paragraph.\n\n    import os\n    print(os.sep)\n\nAfter."

	got := PostProcess(md)
	if !strings.Contains(got, "```python\nimport os\nprint(os.sep)\n```") {
		t.Fatalf("indented block not refenced:\n%s", got)
	}
}

func TestIndentedListContinuationUntouched(t *testing.T) {
	md := "- first item\n    continuation of the item\n- second item"

	got := PostProcess(md)
	if strings.Contains(got, "```") {
		t.Fatalf("list continuation wrongly fenced:\n%s", got)
	}
}

func TestFixTableFormat(t *testing.T) {
	md := "| a | b |   \n| --- | --- \n| 1 | 2 |"

	got := PostProcess(md)
	lines := strings.Split(got, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "|") {
			if strings.HasSuffix(line, " ") {
				t.Fatalf("trailing whitespace kept: %q", line)
			}
			if !strings.HasSuffix(line, "|") {
				t.Fatalf("table line missing closing pipe: %q", line)
			}
		}
	}
}

func TestCollapseBlankLines(t *testing.T) {
	md := "one\n\n\n\ntwo\n\nthree"

	got := PostProcess(md)
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("blank run not collapsed:\n%q", got)
	}
	if !strings.Contains(got, "two\n\nthree") {
		t.Fatalf("intentional single blank line disturbed:\n%q", got)
	}
}

func TestCollapsePreservesFencedInterior(t *testing.T) {
	md := "```\nline1\n\n\nline2\n```"

	got := PostProcess(md)
	if got != md {
		t.Fatalf("fenced interior modified:\n%q", got)
	}
}

func TestPostProcessIdempotent(t *testing.T) {
	md := "# Title\n\nParagraph.\n\n    echo hello\n    cd /tmp\n\n| a | b \n| 1 | 2 |\n\n\nEnd."

	once := PostProcess(md)
	twice := PostProcess(once)
	if once != twice {
		t.Fatalf("PostProcess is not idempotent:\nfirst:\n%q\nsecond:\n%q", once, twice)
	}
}
