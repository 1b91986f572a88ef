package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyHighlights(t *testing.T) {
	text := "the river rose and the river fell"

	tests := []struct {
		name       string
		highlights []Highlight
		want       []Span
	}{
		{
			name:       "exact range",
			highlights: []Highlight{{AnchorText: "river", Start: 23, End: 28, Type: HighlightMark}},
			want: []Span{
				{Text: "the river rose and the ", Start: 0, End: 23},
				{Text: "river", Start: 23, End: 28, Type: HighlightMark},
				{Text: " fell", Start: 28, End: 33},
			},
		},
		{
			name:       "shifted range moves to nearest occurrence",
			highlights: []Highlight{{AnchorText: "river", Start: 6, End: 11, Type: HighlightNote, Note: "n"}},
			want: []Span{
				{Text: "the ", Start: 0, End: 4},
				{Text: "river", Start: 4, End: 9, Type: HighlightNote, Note: "n"},
				{Text: " rose and the river fell", Start: 9, End: 33},
			},
		},
		{
			name:       "unanchorable dropped",
			highlights: []Highlight{{AnchorText: "ocean", Start: 0, End: 5, Type: HighlightMark}},
			want:       []Span{{Text: text, Start: 0, End: 33}},
		},
		{
			name: "overlap keeps the earlier",
			highlights: []Highlight{
				{AnchorText: "rose and", Start: 10, End: 18, Type: HighlightMark},
				{AnchorText: "river rose", Start: 4, End: 14, Type: HighlightNote},
			},
			want: []Span{
				{Text: "the ", Start: 0, End: 4},
				{Text: "river rose", Start: 4, End: 14, Type: HighlightNote},
				{Text: " and the river fell", Start: 14, End: 33},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyHighlights(text, tt.highlights))
		})
	}
}

func TestApplyHighlights_Idempotent(t *testing.T) {
	text := "alpha beta gamma"
	hs := []Highlight{{AnchorText: "beta", Start: 6, End: 10, Type: HighlightMark}}

	assert.Equal(t, ApplyHighlights(text, hs), ApplyHighlights(text, hs))
}

func TestParseHighlights(t *testing.T) {
	hs, err := ParseHighlights([]byte(`[{"anchorText":"river","start":4,"end":9,"type":"highlight","passage":1}]`))
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "river", hs[0].AnchorText)
	assert.Len(t, ForPassage(hs, 1), 1)
	assert.Empty(t, ForPassage(hs, 0))

	hs, err = ParseHighlights(nil)
	require.NoError(t, err)
	assert.Nil(t, hs)

	_, err = ParseHighlights([]byte(`{`))
	assert.Error(t, err)
}
