package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/ieltsprep/practice-service/internal/models"
)

// QuestionScore is the graded view of one attempted question.
type QuestionScore struct {
	Placement
	// Offset is the position of the question's first outcome in the
	// passage's flat outcome list.
	Offset int `json:"offset"`
	// ExtraIncorrect counts selections matching no sub-question, such as
	// wrong checkbox picks.
	ExtraIncorrect int      `json:"extraIncorrect"`
	Strays         []string `json:"strays,omitempty"`
}

// PassageScore is the per-passage breakdown of a ScoreResult.
type PassageScore struct {
	Passage     int             `json:"passage"`
	Label       string          `json:"label"`
	FirstNumber int             `json:"firstNumber"`
	LastNumber  int             `json:"lastNumber"`
	Outcomes    []Outcome       `json:"outcomes"`
	Questions   []QuestionScore `json:"questions"`
}

// ScoreResult is the derived, never persisted score of one attempt.
type ScoreResult struct {
	Details        []PassageScore `json:"details"`
	TotalQuestions int            `json:"total_questions"`
	CorrectAns     int            `json:"correctAns"`
	Incorrect      int            `json:"incorrect"`
	Missed         int            `json:"missed"`
	CorrectPercent int            `json:"correctPercent"`
	// Score is the band value; nil until a band table is applied.
	Score     *float64 `json:"score"`
	BandTable string   `json:"bandTable,omitempty"`
}

// Score grades answers against quiz. Start indices are assigned over every
// passage before attempted filters the passages to grade; an empty
// attempted list means the whole quiz.
func Score(answers []AnswerValue, quiz *models.Quiz, attempted []int) *ScoreResult {
	result := &ScoreResult{Details: []PassageScore{}}
	if quiz == nil {
		return result
	}

	layout := BuildLayout(quiz.Passages)
	for _, pi := range AttemptedPassages(len(quiz.Passages), attempted) {
		passage := &quiz.Passages[pi]
		ps := PassageScore{
			Passage:   pi,
			Outcomes:  []Outcome{},
			Questions: []QuestionScore{},
		}

		for _, pl := range layout.PassagePlacements(pi) {
			g := layout.shape(pl.QuestionRef).grade(slotRange{slots: answers, start: pl.StartIndex, count: pl.SubCount})
			qs := QuestionScore{
				Placement:      pl,
				Offset:         len(ps.Outcomes),
				ExtraIncorrect: len(g.strays),
				Strays:         g.strays,
			}
			for k, o := range g.outcomes {
				o.Number = pl.StartIndex + k + 1
				ps.Outcomes = append(ps.Outcomes, o)
				result.tally(o.Status)
			}
			result.Incorrect += qs.ExtraIncorrect
			result.TotalQuestions += pl.SubCount
			ps.Questions = append(ps.Questions, qs)
		}

		if len(ps.Questions) > 0 {
			first := ps.Questions[0]
			last := ps.Questions[len(ps.Questions)-1]
			ps.FirstNumber = first.StartIndex + 1
			ps.LastNumber = last.End()
		}
		ps.Label = PassageLabel(pi, sectionName(quiz, passage), ps.FirstNumber, ps.LastNumber)
		result.Details = append(result.Details, ps)
	}

	result.CorrectPercent = Percent(result.CorrectAns, result.TotalQuestions)
	return result
}

func (r *ScoreResult) tally(s Status) {
	switch s {
	case StatusCorrect:
		r.CorrectAns++
	case StatusIncorrect:
		r.Incorrect++
	default:
		r.Missed++
	}
}

// ApplyBand maps the correct count through table and records the band.
func (r *ScoreResult) ApplyBand(table *BandTable) {
	if table == nil {
		return
	}
	r.BandTable = table.Name
	if band, ok := table.Lookup(r.CorrectAns); ok {
		r.Score = &band
	}
}

// Percent rounds correct/total to the nearest integer percentage; 0 when
// total is 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// AttemptedPassages resolves attempted against a quiz of n passages. Out of
// range indices are dropped, duplicates collapse and quiz order is kept.
func AttemptedPassages(n int, attempted []int) []int {
	if len(attempted) == 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	seen := make(map[int]bool, len(attempted))
	out := make([]int, 0, len(attempted))
	for _, p := range attempted {
		if p < 0 || p >= n || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func sectionName(quiz *models.Quiz, p *models.Passage) string {
	if quiz.IsListening() || p.Audio != "" {
		return "Part"
	}
	return "Passage"
}

// PassageLabel renders "Passage 2: Questions 14-26", or "Question 14" for a
// single-question range.
func PassageLabel(position int, section string, first, last int) string {
	head := fmt.Sprintf("%s %d", section, position+1)
	switch {
	case first <= 0:
		return head
	case first == last:
		return fmt.Sprintf("%s: Question %d", head, first)
	default:
		return fmt.Sprintf("%s: Questions %d-%d", head, first, last)
	}
}
