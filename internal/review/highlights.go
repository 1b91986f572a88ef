package review

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type HighlightType string

const (
	HighlightMark HighlightType = "highlight"
	HighlightNote HighlightType = "note"
)

// Highlight is a saved text selection. Start and End are byte offsets into
// the text the selection was made on; AnchorText is the selected text.
type Highlight struct {
	AnchorText string        `json:"anchorText" validate:"required"`
	Start      int           `json:"start" validate:"min=0"`
	End        int           `json:"end" validate:"gtfield=Start"`
	Type       HighlightType `json:"type" validate:"required,oneof=highlight note"`
	Note       string        `json:"note,omitempty" validate:"max=1000"`
	// Passage is the passage position the highlight belongs to.
	Passage int `json:"passage" validate:"min=0"`
}

// Span is one piece of re-anchored text. Unhighlighted runs have an empty Type.
type Span struct {
	Text  string        `json:"text"`
	Start int           `json:"start"`
	End   int           `json:"end"`
	Type  HighlightType `json:"type,omitempty"`
	Note  string        `json:"note,omitempty"`
}

// ParseHighlights decodes the stored highlight list. Blank means none.
func ParseHighlights(raw []byte) ([]Highlight, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var hs []Highlight
	if err := json.Unmarshal([]byte(trimmed), &hs); err != nil {
		return nil, fmt.Errorf("failed to decode highlights: %w", err)
	}
	return hs, nil
}

// ForPassage keeps the highlights of one passage.
func ForPassage(hs []Highlight, passage int) []Highlight {
	var out []Highlight
	for _, h := range hs {
		if h.Passage == passage {
			out = append(out, h)
		}
	}
	return out
}

// ApplyHighlights re-anchors highlights against freshly parsed text and
// splits it into spans covering the whole text. A highlight keeps its range
// when that range still holds AnchorText, otherwise it moves to the nearest
// occurrence of AnchorText; highlights that cannot be anchored are dropped,
// as are those overlapping an earlier one.
func ApplyHighlights(text string, highlights []Highlight) []Span {
	anchored := make([]Span, 0, len(highlights))
	for _, h := range highlights {
		start, ok := anchor(text, h)
		if !ok {
			continue
		}
		end := start + len(h.AnchorText)
		anchored = append(anchored, Span{Text: text[start:end], Start: start, End: end, Type: h.Type, Note: h.Note})
	}
	sort.SliceStable(anchored, func(i, j int) bool { return anchored[i].Start < anchored[j].Start })

	spans := make([]Span, 0, 2*len(anchored)+1)
	pos := 0
	for _, a := range anchored {
		if a.Start < pos {
			continue
		}
		if a.Start > pos {
			spans = append(spans, Span{Text: text[pos:a.Start], Start: pos, End: a.Start})
		}
		spans = append(spans, a)
		pos = a.End
	}
	if pos < len(text) {
		spans = append(spans, Span{Text: text[pos:], Start: pos, End: len(text)})
	}
	return spans
}

func anchor(text string, h Highlight) (int, bool) {
	if h.AnchorText == "" {
		return 0, false
	}
	if h.Start >= 0 && h.End <= len(text) && h.Start < h.End && text[h.Start:h.End] == h.AnchorText {
		return h.Start, true
	}

	best, bestDist := -1, 0
	for from := 0; from <= len(text); {
		i := strings.Index(text[from:], h.AnchorText)
		if i < 0 {
			break
		}
		at := from + i
		dist := at - h.Start
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = at, dist
		}
		from = at + 1
	}
	return best, best >= 0
}
