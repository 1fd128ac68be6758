// Package chunk splits long article text into page-sized pieces that end on
// sentence boundaries.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength fits comfortably inside a Discord embed description.
const DefaultMaxLength = 2000

// sentenceEnd matches the tail of a sentence: a run of terminators, optional
// closing quotes or brackets, then the whitespace that follows. A blank line
// also ends a unit so section headings do not glue onto the next paragraph.
var sentenceEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+|\n[ \t]*\n\s*`)

// Sentences tokenizes text into sentence units. Each unit keeps its trailing
// whitespace, so joining the result reproduces text exactly.
func Sentences(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if loc[1] <= start {
			continue
		}
		out = append(out, text[start:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Split groups sentences greedily into chunks of at most maxLength runes.
// A sentence longer than maxLength is returned as its own oversized chunk
// rather than being cut mid-sentence. maxLength <= 0 disables splitting.
func Split(text string, maxLength int) []string {
	if text == "" {
		return nil
	}
	if maxLength <= 0 {
		return []string{text}
	}

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, buf.String())
		buf.Reset()
		bufLen = 0
	}

	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		if bufLen+n > maxLength {
			flush()
		}
		buf.WriteString(s)
		bufLen += n
	}
	flush()
	return chunks
}

// Length reports the rune length used by Split.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
