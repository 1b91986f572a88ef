package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizSkill string

const (
	SkillReading   QuizSkill = "reading"
	SkillListening QuizSkill = "listening"
)

type QuizStatus string

const (
	QuizDraft   QuizStatus = "draft"
	QuizPublish QuizStatus = "publish"
)

// Quiz is a local snapshot of a test definition published by the content API.
// Passages are stored as the raw document tree and decoded after every load.
type Quiz struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Title     string         `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Skill     QuizSkill      `json:"skill" gorm:"size:20;default:reading;index" validate:"omitempty,quiz_skill"`
	BandTable string         `json:"band_table" gorm:"size:50" validate:"omitempty,band_table"`
	Status    QuizStatus     `json:"status" gorm:"size:20;default:publish;index" validate:"omitempty,oneof=draft publish"`
	Content   datatypes.JSON `json:"-" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	Passages []Passage `json:"passages" gorm:"-" validate:"required,min=1,dive"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) BeforeSave(tx *gorm.DB) error {
	content, err := json.Marshal(q.Passages)
	if err != nil {
		return fmt.Errorf("failed to encode quiz passages: %w", err)
	}
	q.Content = content
	return nil
}

func (q *Quiz) AfterFind(tx *gorm.DB) error {
	if len(q.Content) == 0 {
		q.Passages = nil
		return nil
	}
	if err := json.Unmarshal(q.Content, &q.Passages); err != nil {
		return fmt.Errorf("failed to decode quiz %d passages: %w", q.ID, err)
	}
	return nil
}

// IsListening reports whether passages of this quiz are listening parts.
func (q *Quiz) IsListening() bool {
	return q.Skill == SkillListening
}

// Passage is one reading passage or listening part.
type Passage struct {
	Title          string     `json:"title,omitempty"`
	PassageContent string     `json:"passage_content"`
	Audio          string     `json:"audio,omitempty"`
	Questions      []Question `json:"questions" validate:"dive"`
}

// Question mirrors the content API shape. Type is discriminated by Type[0].
type Question struct {
	Type             []string          `json:"type"`
	Question         string            `json:"question,omitempty"`
	Instructions     string            `json:"instructions,omitempty"`
	ListOfOptions    []Option          `json:"list_of_options,omitempty"`
	ListOfQuestions  []SubQuestion     `json:"list_of_questions,omitempty"`
	MatchingQuestion *MatchingQuestion `json:"matchingQuestion,omitempty"`
	MatrixQuestion   *MatrixQuestion   `json:"matrixQuestion,omitempty"`
	Explanations     []Explanation     `json:"explanations,omitempty"`
}

// TypeName returns the normalized type tag, empty when absent.
func (q *Question) TypeName() string {
	if len(q.Type) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(q.Type[0]))
}

type Option struct {
	Option  string `json:"option"`
	Correct bool   `json:"correct"`
}

// SubQuestion is one entry of list_of_questions: either a choice question
// (options with a correct flag) or a short answer with its expected text.
type SubQuestion struct {
	Question      string   `json:"question,omitempty"`
	ListOfOptions []Option `json:"list_of_options,omitempty"`
	Answer        string   `json:"answer,omitempty"`
}

type MatchingLayout string

const (
	LayoutStandard MatchingLayout = "standard"
	LayoutSummary  MatchingLayout = "summary"
	LayoutHeading  MatchingLayout = "heading"
)

type MatchingQuestion struct {
	LayoutType    MatchingLayout `json:"layoutType"`
	MatchingItems []MatchingItem `json:"matchingItems,omitempty"`
	SummaryText   string         `json:"summaryText,omitempty"`
	AnswerOptions []AnswerOption `json:"answerOptions,omitempty"`
}

// Layout normalizes the layout tag; unknown layouts are standard.
func (m *MatchingQuestion) Layout() MatchingLayout {
	switch MatchingLayout(strings.ToLower(strings.TrimSpace(string(m.LayoutType)))) {
	case LayoutSummary:
		return LayoutSummary
	case LayoutHeading:
		return LayoutHeading
	default:
		return LayoutStandard
	}
}

// MatchingItem holds the prompt and its correct target. CorrectAnswer is
// either an index into AnswerOptions or the option text itself.
type MatchingItem struct {
	Question      string          `json:"question"`
	CorrectAnswer json.RawMessage `json:"correctAnswer,omitempty"`
}

type AnswerOption struct {
	OptionText string `json:"optionText"`
}

type MatrixQuestion struct {
	MatrixItems   []MatrixItem   `json:"matrixItems,omitempty"`
	MatrixOptions []AnswerOption `json:"matrixOptions,omitempty"`
}

type MatrixItem struct {
	Question      string          `json:"question"`
	CorrectAnswer json.RawMessage `json:"correctAnswer,omitempty"`
}

type Explanation struct {
	Content string `json:"content"`
}
