package scoring

import "github.com/ieltsprep/practice-service/internal/models"

// BuildAnswerKey returns the answer-slot array a perfect attempt would save.
// Slots of questions without a usable key stay nil.
func BuildAnswerKey(quiz *models.Quiz) []AnswerValue {
	if quiz == nil {
		return []AnswerValue{}
	}
	layout := BuildLayout(quiz.Passages)
	slots := make([]AnswerValue, layout.TotalSlots)
	for _, pl := range layout.Placements {
		for k, v := range layout.shape(pl.QuestionRef).key() {
			if k < pl.SubCount {
				slots[pl.StartIndex+k] = v
			}
		}
	}
	return slots
}

// MissingKeys lists the sub-questions of q that have no usable answer key.
// Such sub-questions can never be scored correct.
func MissingKeys(q *models.Question, passageContent string) []int {
	shape := Classify(q, passageContent)
	keys := shape.key()
	if shape.Kind() == KindCheckbox {
		if len(keys) > 0 && !isBlank(keys[0]) {
			return nil
		}
		return []int{0}
	}

	var missing []int
	for k, v := range keys {
		if isBlank(v) {
			missing = append(missing, k)
		}
	}
	return missing
}
