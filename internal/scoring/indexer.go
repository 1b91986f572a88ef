package scoring

import "github.com/ieltsprep/practice-service/internal/models"

// QuestionRef addresses a question by passage and question position.
type QuestionRef struct {
	Passage  int `json:"passage"`
	Question int `json:"question"`
}

// Placement is where one question lives in the flat answer-slot array.
type Placement struct {
	QuestionRef
	StartIndex int  `json:"startIndex"`
	SubCount   int  `json:"subCount"`
	Kind       Kind `json:"kind"`
}

// End is one past the last slot of the question.
func (p Placement) End() int {
	return p.StartIndex + p.SubCount
}

// Layout is the indexer output for a whole quiz.
type Layout struct {
	Placements []Placement `json:"placements"`
	TotalSlots int         `json:"totalSlots"`

	shapes []Shape
	byRef  map[QuestionRef]int
}

// BuildLayout walks every passage in order, then every question in order,
// and hands out consecutive slot ranges. It depends on question structure
// only, so the same passages always produce the same layout; callers must
// pass the full passage list, never an attempted subset.
func BuildLayout(passages []models.Passage) *Layout {
	l := &Layout{byRef: make(map[QuestionRef]int)}

	next := 0
	for pi := range passages {
		p := &passages[pi]
		for qi := range p.Questions {
			shape := Classify(&p.Questions[qi], p.PassageContent)
			count := atLeastOne(shape.SubCount())

			ref := QuestionRef{Passage: pi, Question: qi}
			l.byRef[ref] = len(l.Placements)
			l.Placements = append(l.Placements, Placement{
				QuestionRef: ref,
				StartIndex:  next,
				SubCount:    count,
				Kind:        shape.Kind(),
			})
			l.shapes = append(l.shapes, shape)
			next += count
		}
	}
	l.TotalSlots = next
	return l
}

// AssignStartIndices returns the startIndex of every question.
func AssignStartIndices(passages []models.Passage) map[QuestionRef]int {
	l := BuildLayout(passages)
	out := make(map[QuestionRef]int, len(l.Placements))
	for _, p := range l.Placements {
		out[p.QuestionRef] = p.StartIndex
	}
	return out
}

// Placement returns the placement of ref.
func (l *Layout) Placement(ref QuestionRef) (Placement, bool) {
	i, ok := l.byRef[ref]
	if !ok {
		return Placement{}, false
	}
	return l.Placements[i], true
}

// PassagePlacements returns the placements of one passage in question order.
func (l *Layout) PassagePlacements(passage int) []Placement {
	var out []Placement
	for _, p := range l.Placements {
		if p.Passage == passage {
			out = append(out, p)
		}
	}
	return out
}

// SameSlots reports whether other hands out identical slot ranges of the same
// kinds. Stored answer arrays stay valid only between such layouts.
func (l *Layout) SameSlots(other *Layout) bool {
	if other == nil || l.TotalSlots != other.TotalSlots || len(l.Placements) != len(other.Placements) {
		return false
	}
	for i, p := range l.Placements {
		if p != other.Placements[i] {
			return false
		}
	}
	return true
}

func (l *Layout) shape(ref QuestionRef) Shape {
	return l.shapes[l.byRef[ref]]
}
