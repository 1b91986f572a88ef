package scoring

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ieltsprep/practice-service/internal/models"
)

// Kind tags the grading shape a question was classified into.
type Kind string

const (
	KindGap      Kind = "fillup"
	KindList     Kind = "list"
	KindCheckbox Kind = "checkbox"
	KindMatching Kind = "matching"
	KindSummary  Kind = "summary"
	KindHeading  Kind = "heading"
	KindMatrix   Kind = "matrix"
	KindFallback Kind = "fallback"
)

type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusMissed    Status = "missed"
)

// Outcome is the graded result of one sub-question. UserAnswer and Answer
// are display texts, never raw option indices.
type Outcome struct {
	Number     int    `json:"number"`
	UserAnswer string `json:"userAnswer"`
	Answer     string `json:"answer"`
	Correct    bool   `json:"correct"`
	Status     Status `json:"status"`
}

type graded struct {
	outcomes []Outcome
	// strays are display texts of selections that match no sub-question.
	strays []string
}

// Shape is the closed set of question variants. Each implementation knows
// how many answer slots its question occupies and how to grade them.
type Shape interface {
	Kind() Kind
	SubCount() int
	grade(r slotRange) graded
	key() []AnswerValue
}

// Classify maps a question onto its shape. passageContent is only read for
// heading matching, whose gaps live in the passage text.
func Classify(q *models.Question, passageContent string) Shape {
	switch q.TypeName() {
	case "matching":
		if m := q.MatchingQuestion; m != nil {
			options := optionTexts(m.AnswerOptions)
			switch m.Layout() {
			case models.LayoutSummary:
				return gapShape{kind: KindSummary, answers: GapAnswers(m.SummaryText), options: options}
			case models.LayoutHeading:
				return gapShape{kind: KindHeading, answers: GapAnswers(passageContent), options: options}
			default:
				targets := make([]json.RawMessage, len(m.MatchingItems))
				for i, item := range m.MatchingItems {
					targets[i] = item.CorrectAnswer
				}
				return targetShape{kind: KindMatching, targets: targets, options: options}
			}
		}
	case "matrix":
		if m := q.MatrixQuestion; m != nil {
			targets := make([]json.RawMessage, len(m.MatrixItems))
			for i, item := range m.MatrixItems {
				targets[i] = item.CorrectAnswer
			}
			return targetShape{kind: KindMatrix, targets: targets, options: optionTexts(m.MatrixOptions)}
		}
	case "checkbox":
		return newCheckboxShape(q.ListOfOptions)
	}

	if len(q.ListOfQuestions) > 0 {
		return listShape{items: q.ListOfQuestions}
	}
	if text := gapText(q); text != "" {
		return gapShape{kind: KindGap, answers: GapAnswers(text)}
	}
	return newFallbackShape(q)
}

// SubCount is the number of answer slots a question occupies, always >= 1.
func SubCount(q *models.Question, passageContent string) int {
	return atLeastOne(Classify(q, passageContent).SubCount())
}

// gapText returns the free text whose markers define a fill-up question:
// the question text when it has gaps, else the instructions.
func gapText(q *models.Question) string {
	if CountGaps(q.Question) > 0 {
		return q.Question
	}
	if CountGaps(q.Instructions) > 0 {
		return q.Instructions
	}
	return ""
}

// GapSource returns the text whose gaps a question is graded against, or
// "" when its sub-questions are not gaps in its own text.
func GapSource(q *models.Question) string {
	if q.TypeName() == "matching" && q.MatchingQuestion != nil && q.MatchingQuestion.Layout() == models.LayoutSummary {
		return q.MatchingQuestion.SummaryText
	}
	if Classify(q, "").Kind() == KindGap {
		return gapText(q)
	}
	return ""
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func optionTexts(options []models.AnswerOption) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.OptionText
	}
	return out
}

// judge classifies one sub-question. Without a key nothing can match, so
// the outcome is missed whatever the user entered.
func judge(user AnswerValue, userText, answer string, hasKey, match bool) Outcome {
	out := Outcome{UserAnswer: DisplayText(userText), Answer: DisplayText(answer)}
	switch {
	case isBlank(user) || !hasKey:
		out.Status = StatusMissed
	case match:
		out.Status = StatusCorrect
		out.Correct = true
	default:
		out.Status = StatusIncorrect
	}
	return out
}

// resolveChoice turns a raw value into option text and index. Numbers are
// option indices; strings may name an option by its text, by a letter key,
// or, when numericStrings is set, by an index in string form.
func resolveChoice(v AnswerValue, options []string, numericStrings bool) (string, int) {
	return resolveKeyedChoice(v, options, numericStrings, letterKey)
}

// keyIndex maps a short option key such as "C" or "iv" to an option index,
// or -1 when s is not a key.
type keyIndex func(s string) int

// letterKey reads A-Z as options 0-25.
func letterKey(s string) int {
	if len(s) != 1 {
		return -1
	}
	letter := strings.ToUpper(s)[0]
	if letter < 'A' || letter > 'Z' {
		return -1
	}
	return int(letter - 'A')
}

var romanValues = map[byte]int{'i': 1, 'v': 5, 'x': 10, 'l': 50}

// romanKey reads lower or upper case roman numerals as options, i being 0.
// Heading lists are keyed this way.
func romanKey(s string) int {
	s = strings.ToLower(s)
	if s == "" || len(s) > 8 {
		return -1
	}
	n := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return -1
		}
		if i+1 < len(s) && romanValues[s[i+1]] > v {
			n -= v
		} else {
			n += v
		}
	}
	if n <= 0 || toRoman(n) != s {
		return -1
	}
	return n - 1
}

func toRoman(n int) string {
	var b strings.Builder
	for _, step := range []struct {
		value int
		text  string
	}{{50, "l"}, {40, "xl"}, {10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"}} {
		for n >= step.value {
			b.WriteString(step.text)
			n -= step.value
		}
	}
	return b.String()
}

func resolveKeyedChoice(v AnswerValue, options []string, numericStrings bool, keys keyIndex) (string, int) {
	if n, ok := asNumber(v); ok {
		if n >= 0 && n < len(options) {
			return options[n], n
		}
		return asText(v), -1
	}
	s, ok := v.(string)
	if !ok {
		return asText(v), -1
	}
	s = strings.TrimSpace(s)
	if numericStrings {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(options) {
			return options[n], n
		}
	}
	for i, o := range options {
		if textEqual(o, s) {
			return o, i
		}
	}
	if i := keys(s); i >= 0 && i < len(options) {
		return options[i], i
	}
	return s, -1
}

func choiceMatch(userText string, userIdx int, answer string, answerIdx int) bool {
	if userIdx >= 0 && answerIdx >= 0 {
		return userIdx == answerIdx
	}
	return textEqual(userText, answer)
}

// ===== GAP SHAPE: fill-up, summary and heading matching =====

type gapShape struct {
	kind    Kind
	answers []string
	options []string
}

func (s gapShape) Kind() Kind    { return s.kind }
func (s gapShape) SubCount() int { return atLeastOne(len(s.answers)) }

func (s gapShape) grade(r slotRange) graded {
	out := make([]Outcome, s.SubCount())
	for k := range out {
		user := r.at(k)
		userText, userIdx := resolveKeyedChoice(user, s.options, true, s.keys())
		if k >= len(s.answers) {
			out[k] = judge(user, userText, "", false, false)
			continue
		}
		answer, answerIdx := s.answer(k)
		out[k] = judge(user, userText, answer, normalizeText(answer) != "", choiceMatch(userText, userIdx, answer, answerIdx))
	}
	return graded{outcomes: out}
}

// keys is the option key scheme of the layout: roman numerals for headings,
// letters otherwise.
func (s gapShape) keys() keyIndex {
	if s.kind == KindHeading {
		return romanKey
	}
	return letterKey
}

// answer resolves gap k. Gaps of matching layouts may hold an option key
// instead of the option text.
func (s gapShape) answer(k int) (string, int) {
	if len(s.options) == 0 {
		return s.answers[k], -1
	}
	return resolveKeyedChoice(DisplayText(s.answers[k]), s.options, false, s.keys())
}

func (s gapShape) key() []AnswerValue {
	keys := make([]AnswerValue, s.SubCount())
	for k := range s.answers {
		answer, idx := s.answer(k)
		if idx >= 0 {
			keys[k] = idx
		} else {
			keys[k] = DisplayText(answer)
		}
	}
	return keys
}

// ===== TARGET SHAPE: standard matching and matrix =====

type targetShape struct {
	kind    Kind
	targets []json.RawMessage
	options []string
}

func (s targetShape) Kind() Kind    { return s.kind }
func (s targetShape) SubCount() int { return atLeastOne(len(s.targets)) }

func (s targetShape) target(k int) (string, int, bool) {
	if k >= len(s.targets) || len(s.targets[k]) == 0 {
		return "", -1, false
	}
	var raw AnswerValue
	dec := json.NewDecoder(strings.NewReader(string(s.targets[k])))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || isBlank(raw) {
		return "", -1, false
	}
	text, idx := resolveChoice(raw, s.options, true)
	return text, idx, true
}

func (s targetShape) grade(r slotRange) graded {
	out := make([]Outcome, s.SubCount())
	for k := range out {
		user := r.at(k)
		userText, userIdx := resolveChoice(user, s.options, true)
		answer, answerIdx, ok := s.target(k)
		out[k] = judge(user, userText, answer, ok, ok && choiceMatch(userText, userIdx, answer, answerIdx))
	}
	return graded{outcomes: out}
}

func (s targetShape) key() []AnswerValue {
	keys := make([]AnswerValue, s.SubCount())
	for k := range keys {
		if answer, idx, ok := s.target(k); ok {
			if idx >= 0 {
				keys[k] = idx
			} else {
				keys[k] = answer
			}
		}
	}
	return keys
}

// ===== LIST SHAPE: list_of_questions =====

type listShape struct {
	items []models.SubQuestion
}

func (s listShape) Kind() Kind    { return KindList }
func (s listShape) SubCount() int { return atLeastOne(len(s.items)) }

func (s listShape) grade(r slotRange) graded {
	out := make([]Outcome, s.SubCount())
	for k := range out {
		user := r.at(k)
		if k >= len(s.items) {
			out[k] = judge(user, asText(user), "", false, false)
			continue
		}
		out[k] = gradeSingleChoice(user, s.items[k].ListOfOptions, s.items[k].Answer)
	}
	return graded{outcomes: out}
}

func (s listShape) key() []AnswerValue {
	keys := make([]AnswerValue, s.SubCount())
	for k, item := range s.items {
		if idx := firstCorrect(item.ListOfOptions); idx >= 0 {
			keys[k] = idx
		} else if item.Answer != "" {
			keys[k] = item.Answer
		}
	}
	return keys
}

func firstCorrect(options []models.Option) int {
	for i, o := range options {
		if o.Correct {
			return i
		}
	}
	return -1
}

func choiceTexts(options []models.Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Option
	}
	return out
}

// gradeSingleChoice grades a radio-style answer against the flagged option,
// or against fallback text when no option is flagged.
func gradeSingleChoice(user AnswerValue, options []models.Option, fallback string) Outcome {
	texts := choiceTexts(options)
	userText, userIdx := resolveChoice(user, texts, false)
	if idx := firstCorrect(options); idx >= 0 {
		return judge(user, userText, texts[idx], true, choiceMatch(userText, userIdx, texts[idx], idx))
	}
	return judge(user, userText, fallback, normalizeText(fallback) != "", textEqual(userText, fallback))
}

// ===== CHECKBOX SHAPE =====

// checkboxShape grades per correct option: sub-question k is the k-th
// correct option and is correct when the selection contains it.
type checkboxShape struct {
	texts   []string
	correct []int
}

func newCheckboxShape(options []models.Option) checkboxShape {
	s := checkboxShape{texts: choiceTexts(options)}
	for i, o := range options {
		if o.Correct {
			s.correct = append(s.correct, i)
		}
	}
	return s
}

func (s checkboxShape) Kind() Kind    { return KindCheckbox }
func (s checkboxShape) SubCount() int { return atLeastOne(len(s.correct)) }

func (s checkboxShape) grade(r slotRange) graded {
	selected := make(map[int]bool)
	var unknown []string
	for _, v := range r.all() {
		for _, e := range elements(v) {
			if isBlank(e) {
				continue
			}
			text, idx := resolveChoice(e, s.texts, true)
			if idx >= 0 {
				selected[idx] = true
			} else {
				unknown = append(unknown, text)
			}
		}
	}

	if len(s.correct) == 0 {
		var picked AnswerValue
		if len(selected) > 0 || len(unknown) > 0 {
			picked = true
		}
		return graded{outcomes: []Outcome{judge(picked, "", "", false, false)}}
	}

	g := graded{outcomes: make([]Outcome, len(s.correct))}
	isCorrect := make(map[int]bool, len(s.correct))
	for k, idx := range s.correct {
		isCorrect[idx] = true
		if selected[idx] {
			g.outcomes[k] = judge(idx, s.texts[idx], s.texts[idx], true, true)
		} else {
			g.outcomes[k] = judge(nil, "", s.texts[idx], true, false)
		}
	}
	for i := range s.texts {
		if selected[i] && !isCorrect[i] {
			g.strays = append(g.strays, DisplayText(s.texts[i]))
		}
	}
	for _, text := range unknown {
		g.strays = append(g.strays, DisplayText(text))
	}
	return g
}

func (s checkboxShape) key() []AnswerValue {
	keys := make([]AnswerValue, s.SubCount())
	if len(s.correct) > 0 {
		picks := make([]any, len(s.correct))
		for i, idx := range s.correct {
			picks[i] = idx
		}
		keys[0] = picks
	}
	return keys
}

// ===== FALLBACK SHAPE =====

// fallbackShape covers questions with no recognizable answer structure.
// It occupies one slot per explanation when several exist. Flagged options
// still key the first sub-questions in single-choice fashion.
type fallbackShape struct {
	count   int
	options []models.Option
	correct []int
}

func newFallbackShape(q *models.Question) fallbackShape {
	s := fallbackShape{count: 1, options: q.ListOfOptions}
	if len(q.Explanations) > 1 {
		s.count = len(q.Explanations)
	}
	for i, o := range q.ListOfOptions {
		if o.Correct {
			s.correct = append(s.correct, i)
		}
	}
	return s
}

func (s fallbackShape) Kind() Kind    { return KindFallback }
func (s fallbackShape) SubCount() int { return atLeastOne(s.count) }

func (s fallbackShape) grade(r slotRange) graded {
	texts := choiceTexts(s.options)
	out := make([]Outcome, s.SubCount())
	for k := range out {
		user := r.at(k)
		userText, userIdx := resolveChoice(user, texts, false)
		if k >= len(s.correct) {
			out[k] = judge(user, userText, "", false, false)
			continue
		}
		idx := s.correct[k]
		out[k] = judge(user, userText, texts[idx], true, choiceMatch(userText, userIdx, texts[idx], idx))
	}
	return graded{outcomes: out}
}

func (s fallbackShape) key() []AnswerValue {
	keys := make([]AnswerValue, s.SubCount())
	for k := 0; k < len(keys) && k < len(s.correct); k++ {
		keys[k] = s.correct[k]
	}
	return keys
}
