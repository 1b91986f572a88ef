package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieltsprep/practice-service/internal/models"
)

func endToEndQuiz() *models.Quiz {
	return &models.Quiz{
		Title: "Two passages",
		Passages: []models.Passage{
			passage("", fillup("The {cat} sat on the {mat}")),
			passage("", checkbox(true, false, true)),
		},
	}
}

func TestScore_EndToEnd(t *testing.T) {
	answers := []AnswerValue{"cat", "dog", []any{0, 2}}

	result := Score(answers, endToEndQuiz(), nil)

	assert.Equal(t, 4, result.TotalQuestions)
	assert.Equal(t, 3, result.CorrectAns)
	assert.Equal(t, 1, result.Incorrect)
	assert.Equal(t, 0, result.Missed)
	assert.Equal(t, 75, result.CorrectPercent)
	assert.Nil(t, result.Score)

	require.Len(t, result.Details, 2)
	first := result.Details[0].Outcomes
	require.Len(t, first, 2)
	assert.Equal(t, Outcome{Number: 1, UserAnswer: "cat", Answer: "cat", Correct: true, Status: StatusCorrect}, first[0])
	assert.Equal(t, Outcome{Number: 2, UserAnswer: "dog", Answer: "mat", Status: StatusIncorrect}, first[1])
	assert.Equal(t, "Passage 1: Questions 1-2", result.Details[0].Label)
	assert.Equal(t, "Passage 2: Questions 3-4", result.Details[1].Label)
}

func TestScore_EndToEndFromPayload(t *testing.T) {
	answers, err := ParseAnswerPayload([]byte(`{"answers":["cat","dog",[0,2]]}`))
	require.NoError(t, err)

	result := Score(answers, endToEndQuiz(), []int{0, 1})

	assert.Equal(t, 3, result.CorrectAns)
	assert.Equal(t, 75, result.CorrectPercent)
}

func TestScore_CheckboxPartialCredit(t *testing.T) {
	quiz := &models.Quiz{Passages: []models.Passage{passage("", checkbox(true, false, true, false))}}

	tests := []struct {
		name      string
		answers   []AnswerValue
		correct   int
		incorrect int
		missed    int
		statuses  []Status
	}{
		{
			name:      "one right one wrong pick",
			answers:   []AnswerValue{[]any{0, 1}},
			correct:   1,
			incorrect: 1,
			missed:    1,
			statuses:  []Status{StatusCorrect, StatusMissed},
		},
		{
			name:     "both right",
			answers:  []AnswerValue{[]any{json.Number("2"), json.Number("0")}},
			correct:  2,
			statuses: []Status{StatusCorrect, StatusCorrect},
		},
		{
			name:      "only wrong picks",
			answers:   []AnswerValue{[]any{1, 3}},
			incorrect: 2,
			missed:    2,
			statuses:  []Status{StatusMissed, StatusMissed},
		},
		{
			name:     "picks spread across slots",
			answers:  []AnswerValue{0, 2},
			correct:  2,
			statuses: []Status{StatusCorrect, StatusCorrect},
		},
		{
			name:     "nothing selected",
			answers:  []AnswerValue{},
			missed:   2,
			statuses: []Status{StatusMissed, StatusMissed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(tt.answers, quiz, nil)
			assert.Equal(t, 2, result.TotalQuestions)
			assert.Equal(t, tt.correct, result.CorrectAns)
			assert.Equal(t, tt.incorrect, result.Incorrect)
			assert.Equal(t, tt.missed, result.Missed)

			outcomes := result.Details[0].Outcomes
			require.Len(t, outcomes, len(tt.statuses))
			for i, s := range tt.statuses {
				assert.Equal(t, s, outcomes[i].Status)
			}
			assert.Equal(t, tt.incorrect, result.Details[0].Questions[0].ExtraIncorrect)
		})
	}
}

func TestScore_AttemptedFilteringKeepsIndices(t *testing.T) {
	quiz := mixedQuiz()
	answers := BuildAnswerKey(quiz)
	answers[4] = "wrong"

	full := Score(answers, quiz, []int{0, 1, 2})
	only := Score(answers, quiz, []int{1})

	require.Len(t, full.Details, 3)
	require.Len(t, only.Details, 1)
	assert.Equal(t, full.Details[1], only.Details[0])
	assert.Equal(t, 6, only.TotalQuestions)
	assert.Equal(t, 5, only.CorrectAns)
	assert.Equal(t, 1, only.Incorrect)
	assert.Equal(t, 5, only.Details[0].FirstNumber)
	assert.Equal(t, "Passage 2: Questions 5-10", only.Details[0].Label)
}

func TestScore_RoundTrip(t *testing.T) {
	quizzes := map[string]*models.Quiz{
		"mixed":      mixedQuiz(),
		"end to end": endToEndQuiz(),
	}

	for name, quiz := range quizzes {
		t.Run(name, func(t *testing.T) {
			key := BuildAnswerKey(quiz)

			payload, err := EncodeAnswerPayload(key)
			require.NoError(t, err)
			answers, err := ParseAnswerPayload(payload)
			require.NoError(t, err)

			result := Score(answers, quiz, nil)
			assert.Equal(t, result.TotalQuestions, result.CorrectAns)
			assert.Zero(t, result.Incorrect)
			assert.Zero(t, result.Missed)
			assert.Equal(t, 100, result.CorrectPercent)
		})
	}
}

func TestScore_AllMissed(t *testing.T) {
	quiz := mixedQuiz()

	for name, answers := range map[string][]AnswerValue{
		"nil":    nil,
		"blanks": make([]AnswerValue, 16),
		"spaces": {" ", "", nil, []any{}, map[string]any{}},
	} {
		t.Run(name, func(t *testing.T) {
			result := Score(answers, quiz, nil)
			assert.Zero(t, result.CorrectAns)
			assert.Zero(t, result.Incorrect)
			assert.Equal(t, result.TotalQuestions, result.Missed)
			assert.Zero(t, result.CorrectPercent)
		})
	}
}

func TestScore_ObjectPerQuestionSlots(t *testing.T) {
	quiz := &models.Quiz{Passages: []models.Passage{
		passage("", matching([]any{0, 2}, "Rome", "Berlin", "Paris")),
	}}

	tests := []struct {
		name    string
		answers []AnswerValue
		correct int
	}{
		{"object in first slot", []AnswerValue{map[string]any{"0": json.Number("0"), "1": "2"}}, 2},
		{"object per slot", []AnswerValue{map[string]any{"0": 0}, map[string]any{"1": "Paris"}}, 2},
		{"plain slots", []AnswerValue{"Rome", "Berlin"}, 1},
		{"option letters", []AnswerValue{"a", "C"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(tt.answers, quiz, nil)
			assert.Equal(t, tt.correct, result.CorrectAns)
			assert.Equal(t, "Rome", result.Details[0].Outcomes[0].Answer)
		})
	}
}

func TestScore_DisplayTexts(t *testing.T) {
	quiz := &models.Quiz{Passages: []models.Passage{
		passage("", summary("Rivers {flood} in {spring}", "flood", "dry", "spring")),
	}}

	result := Score([]AnswerValue{json.Number("1"), "2"}, quiz, nil)

	outcomes := result.Details[0].Outcomes
	require.Len(t, outcomes, 2)
	assert.Equal(t, "dry", outcomes[0].UserAnswer)
	assert.Equal(t, "flood", outcomes[0].Answer)
	assert.Equal(t, StatusIncorrect, outcomes[0].Status)
	assert.Equal(t, "spring", outcomes[1].UserAnswer)
	assert.Equal(t, StatusCorrect, outcomes[1].Status)
}

func TestScore_TextNormalization(t *testing.T) {
	quiz := &models.Quiz{Passages: []models.Passage{passage("", fillup("<p>The {Big  <b>Ben</b>} tower</p>"))}}

	for _, answer := range []string{"big ben", "  BIG   Ben ", "Big&nbsp;Ben"} {
		result := Score([]AnswerValue{answer}, quiz, nil)
		assert.Equal(t, 1, result.CorrectAns, "answer %q", answer)
	}
}

func TestScore_MalformedQuestionIsMissed(t *testing.T) {
	quiz := &models.Quiz{Passages: []models.Passage{
		passage("",
			models.Question{Type: []string{"matrix"}},
			models.Question{Type: []string{"checkbox"}},
			fillup("{ok}"),
		),
	}}

	result := Score([]AnswerValue{"anything", []any{0}, "ok"}, quiz, nil)

	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 1, result.CorrectAns)
	assert.Equal(t, 2, result.Missed)
	assert.Zero(t, result.Incorrect)
}

func TestScore_ListeningLabels(t *testing.T) {
	quiz := &models.Quiz{Skill: models.SkillListening, Passages: []models.Passage{
		passage("", fillup("{a}")),
		passage("", fillup("{b} {c}")),
	}}

	result := Score(nil, quiz, nil)

	assert.Equal(t, "Part 1: Question 1", result.Details[0].Label)
	assert.Equal(t, "Part 2: Questions 2-3", result.Details[1].Label)
}

func TestAttemptedPassages(t *testing.T) {
	tests := []struct {
		name      string
		attempted []int
		want      []int
	}{
		{"empty means all", nil, []int{0, 1, 2}},
		{"subset", []int{2}, []int{2}},
		{"out of order", []int{2, 0}, []int{0, 2}},
		{"duplicates collapse", []int{1, 1}, []int{1}},
		{"out of range dropped", []int{-1, 1, 7}, []int{1}},
		{"only invalid", []int{9}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttemptedPassages(3, tt.attempted))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 75, Percent(3, 4))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 100, Percent(40, 40))
}

func TestScoreResult_ApplyBand(t *testing.T) {
	table, ok := BuiltinBandTable(BandAcademicReading)
	require.True(t, ok)

	result := &ScoreResult{CorrectAns: 28}
	result.ApplyBand(table)

	require.NotNil(t, result.Score)
	assert.Equal(t, 6.5, *result.Score)
	assert.Equal(t, BandAcademicReading, result.BandTable)

	result.ApplyBand(nil)
	assert.Equal(t, 6.5, *result.Score)
}

func TestScore_HeadingRomanKeys(t *testing.T) {
	headings := []string{"Origins", "Trade", "Climate", "Farming", "Rivers", "Cities", "Language", "Tools", "Food", "Sea"}
	quiz := &models.Quiz{Passages: []models.Passage{
		passage("A {i} B {ii} C {ix}", heading(headings...)),
	}}

	tests := []struct {
		name    string
		answers []AnswerValue
		correct int
	}{
		{"option indices", []AnswerValue{0, 1, 8}, 3},
		{"numerals", []AnswerValue{"i", "ii", "IX"}, 3},
		{"heading texts", []AnswerValue{"origins", "Trade", "Food"}, 3},
		{"letters are not keys", []AnswerValue{"a", "b", "i"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Score(tt.answers, quiz, nil)
			assert.Equal(t, tt.correct, result.CorrectAns)

			outcomes := result.Details[0].Outcomes
			require.Len(t, outcomes, 3)
			assert.Equal(t, "Origins", outcomes[0].Answer)
			assert.Equal(t, "Trade", outcomes[1].Answer)
			assert.Equal(t, "Food", outcomes[2].Answer)
		})
	}

	assert.Equal(t, []AnswerValue{0, 1, 8}, BuildAnswerKey(quiz))
}

func TestScore_SummaryLetterKeys(t *testing.T) {
	quiz := &models.Quiz{Passages: []models.Passage{
		passage("", summary("Rivers {B} in {i}", "flood", "dry", "spring", "snow", "rain", "mud", "fog", "hail", "ice")),
	}}

	result := Score([]AnswerValue{1, 8}, quiz, nil)

	assert.Equal(t, 2, result.CorrectAns)
	assert.Equal(t, "dry", result.Details[0].Outcomes[0].Answer)
	assert.Equal(t, "ice", result.Details[0].Outcomes[1].Answer)
}

func TestRomanKey(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"i", 0},
		{"iv", 3},
		{"IX", 8},
		{"xii", 11},
		{"iiii", -1},
		{"vx", -1},
		{"b", -1},
		{"", -1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, romanKey(tt.in))
		})
	}
}
