package review

import (
	"fmt"
	"html"
	"strings"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/scoring"
)

type SegmentKind string

const (
	SegmentText SegmentKind = "text"
	SegmentGap  SegmentKind = "gap"
)

// Segment is one immutable piece of annotated text. Text segments keep the
// original rich text; gap segments carry the graded outcome of their gap.
type Segment struct {
	Kind       SegmentKind    `json:"kind"`
	Text       string         `json:"text"`
	Status     scoring.Status `json:"status,omitempty"`
	UserAnswer string         `json:"userAnswer,omitempty"`
	Answer     string         `json:"answer,omitempty"`
	Number     int            `json:"number,omitempty"`
}

// Annotate pairs gap k of text with outcomes[k]. Gaps beyond the outcome
// list stay unannotated.
func Annotate(text string, outcomes []scoring.Outcome) []Segment {
	tokens := scoring.SplitGaps(text)
	segments := make([]Segment, 0, len(tokens))
	for _, tok := range tokens {
		if !tok.IsGap {
			segments = append(segments, Segment{Kind: SegmentText, Text: tok.Text})
			continue
		}
		seg := Segment{Kind: SegmentGap, Text: tok.Text}
		if tok.Gap < len(outcomes) {
			o := outcomes[tok.Gap]
			seg.Status = o.Status
			seg.UserAnswer = o.UserAnswer
			seg.Answer = o.Answer
			seg.Number = o.Number
		}
		segments = append(segments, seg)
	}
	return segments
}

// RenderHTML renders segments back into rich text with answer markup.
func RenderHTML(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Kind == SegmentText {
			b.WriteString(seg.Text)
			continue
		}
		answer := html.EscapeString(seg.Answer)
		if answer == "" {
			answer = html.EscapeString(scoring.DisplayText(seg.Text))
		}
		switch seg.Status {
		case scoring.StatusCorrect:
			fmt.Fprintf(&b, `<span class="answer-correct">%s</span>`, answer)
		case scoring.StatusIncorrect:
			fmt.Fprintf(&b, `<span class="answer-incorrect"><s>%s</s> <ins>%s</ins></span>`, html.EscapeString(seg.UserAnswer), answer)
		case scoring.StatusMissed:
			fmt.Fprintf(&b, `<span class="answer-missed"><ins>%s</ins></span>`, answer)
		default:
			b.WriteString(`<span class="answer-gap"></span>`)
		}
	}
	return b.String()
}

// PassageReview is the review view of one attempted passage.
type PassageReview struct {
	Passage   int              `json:"passage"`
	Label     string           `json:"label"`
	Title     string           `json:"title,omitempty"`
	Audio     string           `json:"audio,omitempty"`
	Content   string           `json:"content"`
	Questions []QuestionReview `json:"questions"`
}

type QuestionReview struct {
	Number         int               `json:"number"`
	Kind           scoring.Kind      `json:"kind"`
	Text           string            `json:"text"`
	Instructions   string            `json:"instructions,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	Outcomes       []scoring.Outcome `json:"outcomes"`
	Explanations   []string          `json:"explanations,omitempty"`
	ExtraIncorrect int               `json:"extraIncorrect,omitempty"`
}

// Project builds the review of every scored passage of quiz.
func Project(quiz *models.Quiz, score *scoring.ScoreResult) []PassageReview {
	reviews := make([]PassageReview, 0, len(score.Details))
	for _, ps := range score.Details {
		if ps.Passage < 0 || ps.Passage >= len(quiz.Passages) {
			continue
		}
		passage := &quiz.Passages[ps.Passage]
		pr := PassageReview{
			Passage:   ps.Passage,
			Label:     ps.Label,
			Title:     passage.Title,
			Audio:     passage.Audio,
			Content:   passage.PassageContent,
			Questions: make([]QuestionReview, 0, len(ps.Questions)),
		}

		headingDone := false
		for _, qs := range ps.Questions {
			q := &passage.Questions[qs.Question]
			outcomes := ps.Outcomes[qs.Offset : qs.Offset+qs.SubCount]

			qr := QuestionReview{
				Number:         qs.StartIndex + 1,
				Kind:           qs.Kind,
				Text:           q.Question,
				Instructions:   q.Instructions,
				Outcomes:       outcomes,
				Explanations:   explanations(q),
				ExtraIncorrect: qs.ExtraIncorrect,
			}
			switch qs.Kind {
			case scoring.KindHeading:
				if !headingDone {
					pr.Content = RenderHTML(Annotate(passage.PassageContent, outcomes))
					headingDone = true
				}
			case scoring.KindSummary:
				qr.Summary = RenderHTML(Annotate(scoring.GapSource(q), outcomes))
			case scoring.KindGap:
				src := scoring.GapSource(q)
				if src == q.Question {
					qr.Text = RenderHTML(Annotate(src, outcomes))
				} else {
					qr.Instructions = RenderHTML(Annotate(src, outcomes))
				}
			}
			pr.Questions = append(pr.Questions, qr)
		}
		reviews = append(reviews, pr)
	}
	return reviews
}

func explanations(q *models.Question) []string {
	if len(q.Explanations) == 0 {
		return nil
	}
	out := make([]string, len(q.Explanations))
	for i, e := range q.Explanations {
		out[i] = e.Content
	}
	return out
}
