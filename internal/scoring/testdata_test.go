package scoring

import (
	"encoding/json"

	"github.com/ieltsprep/practice-service/internal/models"
)

func fillup(text string) models.Question {
	return models.Question{Type: []string{"fillup"}, Question: text}
}

func checkbox(correct ...bool) models.Question {
	q := models.Question{Type: []string{"checkbox"}}
	for i, c := range correct {
		q.ListOfOptions = append(q.ListOfOptions, models.Option{Option: string(rune('A' + i)), Correct: c})
	}
	return q
}

func answerOptions(texts ...string) []models.AnswerOption {
	out := make([]models.AnswerOption, len(texts))
	for i, t := range texts {
		out[i] = models.AnswerOption{OptionText: t}
	}
	return out
}

func raw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func matching(targets []any, options ...string) models.Question {
	m := &models.MatchingQuestion{LayoutType: models.LayoutStandard, AnswerOptions: answerOptions(options...)}
	for i, t := range targets {
		m.MatchingItems = append(m.MatchingItems, models.MatchingItem{Question: string(rune('a' + i)), CorrectAnswer: raw(t)})
	}
	return models.Question{Type: []string{"matching"}, MatchingQuestion: m}
}

func summary(text string, options ...string) models.Question {
	return models.Question{Type: []string{"matching"}, MatchingQuestion: &models.MatchingQuestion{
		LayoutType:    models.LayoutSummary,
		SummaryText:   text,
		AnswerOptions: answerOptions(options...),
	}}
}

func heading(options ...string) models.Question {
	return models.Question{Type: []string{"matching"}, Question: "Choose the correct heading {x}", MatchingQuestion: &models.MatchingQuestion{
		LayoutType:    models.LayoutHeading,
		AnswerOptions: answerOptions(options...),
	}}
}

func matrix(targets []any, options ...string) models.Question {
	m := &models.MatrixQuestion{MatrixOptions: answerOptions(options...)}
	for i, t := range targets {
		m.MatrixItems = append(m.MatrixItems, models.MatrixItem{Question: string(rune('a' + i)), CorrectAnswer: raw(t)})
	}
	return models.Question{Type: []string{"matrix"}, MatrixQuestion: m}
}

func passage(content string, questions ...models.Question) models.Passage {
	return models.Passage{PassageContent: content, Questions: questions}
}

// mixedQuiz exercises every shape across three passages.
func mixedQuiz() *models.Quiz {
	return &models.Quiz{
		Title: "Mixed",
		Skill: models.SkillReading,
		Passages: []models.Passage{
			passage("<p>Reading one</p>",
				fillup("The {cat} sat on the {mat}"),
				checkbox(true, false, true, false),
			),
			passage("<p>Section A {iii}</p><p>Section B {i}</p>",
				heading("Origins", "Decline", "Rise"),
				summary("Rivers {flood} in {spring}", "flood", "dry", "spring"),
				matching([]any{1, "Paris"}, "Rome", "Berlin", "Paris"),
			),
			passage("",
				matrix([]any{0, 2, "B"}, "A", "B", "C"),
				models.Question{Type: []string{"fillup"}, ListOfQuestions: []models.SubQuestion{
					{Question: "Q1", ListOfOptions: []models.Option{{Option: "yes"}, {Option: "no", Correct: true}}},
					{Question: "Q2", Answer: "London"},
				}},
				models.Question{Type: []string{"fillup"}, Instructions: "Write {one} word"},
			),
		},
	}
}
