package scoring

import (
	"html"
	"regexp"
	"strings"
)

// gapPattern matches one {answer} marker. Markers never nest.
var gapPattern = regexp.MustCompile(`\{([^{}]*)\}`)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// GapToken is one piece of a gapped text: either literal text or a gap.
type GapToken struct {
	Text  string
	IsGap bool
	// Gap is the 0-based ordinal of the gap within the text, -1 for literal text.
	Gap int
}

// SplitGaps walks text left to right and splits it into literal runs and gaps.
// It is the only gap parser: indexing, grading and review all consume its output,
// so gap k always means the same marker.
func SplitGaps(text string) []GapToken {
	matches := gapPattern.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]GapToken, 0, 2*len(matches)+1)

	pos := 0
	for i, m := range matches {
		if m[0] > pos {
			tokens = append(tokens, GapToken{Text: text[pos:m[0]], Gap: -1})
		}
		tokens = append(tokens, GapToken{Text: text[m[2]:m[3]], IsGap: true, Gap: i})
		pos = m[1]
	}
	if pos < len(text) {
		tokens = append(tokens, GapToken{Text: text[pos:], Gap: -1})
	}
	return tokens
}

// CountGaps returns the number of {answer} markers in text.
func CountGaps(text string) int {
	n := 0
	for _, tok := range SplitGaps(text) {
		if tok.IsGap {
			n++
		}
	}
	return n
}

// GapAnswers returns the bracketed texts of text in marker order.
func GapAnswers(text string) []string {
	var answers []string
	for _, tok := range SplitGaps(text) {
		if tok.IsGap {
			answers = append(answers, tok.Text)
		}
	}
	return answers
}

// DisplayText strips markup from rich text and collapses whitespace.
func DisplayText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeText(s string) string {
	return strings.ToLower(DisplayText(s))
}

// textEqual compares two answers case-insensitively. Empty never matches.
func textEqual(a, b string) bool {
	na := normalizeText(a)
	return na != "" && na == normalizeText(b)
}
