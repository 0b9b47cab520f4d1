package translate

import (
	"regexp"
	"strings"
)

var headingLineRe = regexp.MustCompile(`^#{1,6}\s+.+`)

// ChunkSet holds ordered slices of a document together with the separator
// the split strategy removed. Joining Parts with Separator reproduces the
// input exactly.
type ChunkSet struct {
	Parts     []string
	Separator string
}

// splitText chunks text for independent translation. Heading boundaries are
// preferred; a new chunk starts at a heading line only once the current
// chunk already exceeds the limit, so small and numerous headings do not
// fragment the document. When headings yield at most one chunk, whole
// paragraphs are accumulated instead.
func splitText(text string, limit int) ChunkSet {
	if byHeadings := splitByHeadings(text, limit); len(byHeadings.Parts) > 1 {
		return byHeadings
	}
	return splitByParagraphs(text, limit)
}

func splitByHeadings(text string, limit int) ChunkSet {
	lines := strings.Split(text, "\n")

	var chunks []string
	var current []string
	currentLen := 0

	for _, line := range lines {
		if headingLineRe.MatchString(line) && currentLen > limit && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = []string{line}
			currentLen = len(line)
			continue
		}
		if len(current) > 0 {
			currentLen++ // the joining newline
		}
		current = append(current, line)
		currentLen += len(line)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	return ChunkSet{Parts: chunks, Separator: "\n"}
}

func splitByParagraphs(text string, limit int) ChunkSet {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current []string
	currentLen := 0

	for _, para := range paragraphs {
		if currentLen+len(para) > limit && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = []string{para}
			currentLen = len(para)
			continue
		}
		current = append(current, para)
		currentLen += len(para) + 2
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return ChunkSet{Parts: chunks, Separator: "\n\n"}
}
