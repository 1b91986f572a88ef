package validator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ieltsprep/practice-service/internal/errors"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/scoring"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// LintIssue is one problem found in a quiz document
type LintIssue struct {
	Passage  int      `json:"passage"`
	Question int      `json:"question"`
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

type LintReport []LintIssue

// Errors returns the error-severity issues as validation errors
func (r LintReport) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, issue := range r {
		if issue.Severity != SeverityError {
			continue
		}
		errs = append(errs, *errors.NewValidationErrorWithRule(
			fmt.Sprintf("passages[%d].questions[%d]", issue.Passage, issue.Question),
			issue.Message, issue.Rule, nil))
	}
	return errs
}

// QuizLinter reports questions whose content cannot be graded as typed
type QuizLinter struct{}

func NewQuizLinter() *QuizLinter {
	return &QuizLinter{}
}

var knownTypes = map[string]bool{
	"":         true,
	"fillup":   true,
	"matching": true,
	"matrix":   true,
	"checkbox": true,
}

// Lint walks every question of quiz in order
func (l *QuizLinter) Lint(quiz *models.Quiz) LintReport {
	report := LintReport{}
	for pi := range quiz.Passages {
		p := &quiz.Passages[pi]
		if len(p.Questions) == 0 {
			report = append(report, LintIssue{Passage: pi, Question: -1, Severity: SeverityWarning,
				Rule: "empty_passage", Message: "passage has no questions"})
		}
		for qi := range p.Questions {
			for _, issue := range l.lintQuestion(&p.Questions[qi], p.PassageContent) {
				issue.Passage, issue.Question = pi, qi
				report = append(report, issue)
			}
		}
	}
	return report
}

func (l *QuizLinter) lintQuestion(q *models.Question, passageContent string) []LintIssue {
	var issues []LintIssue
	add := func(sev Severity, rule, format string, args ...any) {
		issues = append(issues, LintIssue{Severity: sev, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	typeName := q.TypeName()
	if !knownTypes[typeName] {
		add(SeverityWarning, "unknown_type", "unknown question type %q is graded as fillup", typeName)
	}

	shape := scoring.Classify(q, passageContent)
	switch typeName {
	case "matching":
		if q.MatchingQuestion == nil {
			add(SeverityError, "missing_matching", "matching question has no matchingQuestion body")
			break
		}
		switch q.MatchingQuestion.Layout() {
		case models.LayoutSummary:
			if scoring.CountGaps(q.MatchingQuestion.SummaryText) == 0 {
				add(SeverityError, "summary_without_gaps", "summaryText has no {answer} gaps")
			}
		case models.LayoutHeading:
			if scoring.CountGaps(passageContent) == 0 {
				add(SeverityError, "heading_without_gaps", "passage content has no {heading} gaps")
			}
		default:
			if len(q.MatchingQuestion.MatchingItems) == 0 {
				add(SeverityError, "matching_without_items", "matching question has no matchingItems")
			}
			issues = append(issues, targetIssues(matchingTargets(q.MatchingQuestion), len(q.MatchingQuestion.AnswerOptions))...)
		}
	case "matrix":
		if q.MatrixQuestion == nil || len(q.MatrixQuestion.MatrixItems) == 0 {
			add(SeverityError, "matrix_without_items", "matrix question has no matrixItems")
			break
		}
		issues = append(issues, targetIssues(matrixTargets(q.MatrixQuestion), len(q.MatrixQuestion.MatrixOptions))...)
	case "checkbox":
		if len(q.ListOfOptions) == 0 {
			add(SeverityError, "checkbox_without_options", "checkbox question has no list_of_options")
		}
	}

	if shape.Kind() == scoring.KindFallback && typeName != "" {
		add(SeverityWarning, "fallback_shape", "question of type %q has no gradable structure", typeName)
	}
	if missing := scoring.MissingKeys(q, passageContent); len(missing) > 0 {
		add(SeverityWarning, "missing_answer_key", "sub-questions %v have no answer key and always score missed", missing)
	}
	if n := len(q.Explanations); n > 1 && n != shape.SubCount() {
		add(SeverityWarning, "explanation_count", "%d explanations for %d sub-questions", n, shape.SubCount())
	}
	return issues
}

func matchingTargets(m *models.MatchingQuestion) []json.RawMessage {
	out := make([]json.RawMessage, len(m.MatchingItems))
	for i, item := range m.MatchingItems {
		out[i] = item.CorrectAnswer
	}
	return out
}

func matrixTargets(m *models.MatrixQuestion) []json.RawMessage {
	out := make([]json.RawMessage, len(m.MatrixItems))
	for i, item := range m.MatrixItems {
		out[i] = item.CorrectAnswer
	}
	return out
}

// targetIssues flags numeric targets pointing outside the option table
func targetIssues(targets []json.RawMessage, optionCount int) []LintIssue {
	var issues []LintIssue
	for i, raw := range targets {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			continue
		}
		idx, err := n.Int64()
		if err != nil || idx < 0 || int(idx) >= optionCount {
			issues = append(issues, LintIssue{Severity: SeverityError, Rule: "target_out_of_range",
				Message: fmt.Sprintf("item %d targets option %s but only %d options exist", i, n, optionCount)})
		}
	}
	return issues
}
