package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/review"
	"github.com/ieltsprep/practice-service/internal/scoring"
	"github.com/ieltsprep/practice-service/internal/validator"
)

// ===== SERVICE INTERFACES =====

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID  string
	IsAdmin bool
}

// QuizService exposes quiz snapshots. Everything revealing correct answers,
// and every write, is restricted to admins.
type QuizService interface {
	Upsert(ctx context.Context, quiz *models.Quiz, actor Actor) (*models.Quiz, error)
	Get(ctx context.Context, id uint, actor Actor) (*models.Quiz, error)
	Layout(ctx context.Context, id uint) (*QuizLayoutResponse, error)
	Lint(ctx context.Context, id uint, actor Actor) (*QuizLintResponse, error)
	AnswerKey(ctx context.Context, id uint, actor Actor) ([]scoring.AnswerValue, error)
}

type ResultService interface {
	Start(ctx context.Context, req *StartResultRequest, userID string) (*models.TestResult, error)
	SaveProgress(ctx context.Context, id uint, req *SaveProgressRequest, userID string) (*models.TestResult, error)
	Submit(ctx context.Context, id uint, req *SubmitResultRequest, userID string) (*ScoreReport, error)
	Score(ctx context.Context, id uint, userID string) (*ScoreReport, error)
	Review(ctx context.Context, id uint, userID string) (*ReviewResponse, error)
	History(ctx context.Context, userID string, req *HistoryRequest) (*HistoryResponse, error)
	ExportReport(ctx context.Context, id uint, userID string) (*ExportedReport, error)
}

type ScoringService interface {
	Calculate(ctx context.Context, req *CalculateScoreRequest) (*scoring.ScoreResult, error)
}

type BandService interface {
	Get(ctx context.Context, name string) (*scoring.BandTable, error)
	List(ctx context.Context) ([]*scoring.BandTable, error)
	Import(ctx context.Context, name string, r io.Reader, actor Actor) (*scoring.BandTable, error)
}

// ServiceManager hands out the services the HTTP layer depends on
type ServiceManager interface {
	Quiz() QuizService
	Result() ResultService
	Scoring() ScoringService
	Band() BandService
	Validator() *validator.Validator
}

// ===== REQUESTS =====

type StartResultRequest struct {
	QuizID    uint  `json:"quiz_id" validate:"required"`
	TestPart  []int `json:"test_part" validate:"omitempty,dive,min=0"`
	TotalTime int   `json:"total_time" validate:"min=0"`
}

type SaveProgressRequest struct {
	Answers    json.RawMessage    `json:"answers" validate:"required"`
	TimeLeft   int                `json:"time_left" validate:"min=0"`
	Highlights []review.Highlight `json:"highlights" validate:"omitempty,dive"`
}

type SubmitResultRequest struct {
	Answers  json.RawMessage `json:"answers" validate:"required"`
	TimeLeft int             `json:"time_left" validate:"min=0"`
}

type HistoryRequest struct {
	QuizID   *uint      `form:"quiz_id" json:"quiz_id"`
	DateFrom *time.Time `form:"date_from" json:"date_from" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"date_to" json:"date_to" time_format:"2006-01-02"`
	Limit    int        `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Offset   int        `form:"offset" json:"offset" validate:"omitempty,min=0"`
}

// CalculateScoreRequest scores an ad-hoc quiz document without storing anything
type CalculateScoreRequest struct {
	Quiz      *models.Quiz    `json:"quiz" validate:"required"`
	Answers   json.RawMessage `json:"answers" validate:"required"`
	TestPart  []int           `json:"test_part"`
	BandTable string          `json:"band_table" validate:"omitempty,band_table"`
}

// ===== RESPONSES =====

type QuizLayoutResponse struct {
	QuizID     uint                `json:"quiz_id"`
	TotalSlots int                 `json:"total_slots"`
	Placements []scoring.Placement `json:"placements"`
}

type QuizLintResponse struct {
	QuizID uint                 `json:"quiz_id"`
	Valid  bool                 `json:"valid"`
	Issues validator.LintReport `json:"issues"`
}

// ScoreReport is the score of one published result plus its identity
type ScoreReport struct {
	ResultID    uint       `json:"result_id"`
	QuizID      uint       `json:"quiz_id"`
	QuizTitle   string     `json:"quiz_title"`
	UserID      string     `json:"user_id"`
	SubmittedAt *time.Time `json:"submitted_at"`
	TimeSpent   int        `json:"time_spent"`

	*scoring.ScoreResult
}

type PassageHighlights struct {
	Passage int           `json:"passage"`
	Spans   []review.Span `json:"spans"`
}

type ReviewResponse struct {
	Report     *ScoreReport           `json:"report"`
	Passages   []review.PassageReview `json:"passages"`
	Highlights []PassageHighlights    `json:"highlights,omitempty"`
}

type HistoryEntry struct {
	ResultID       uint       `json:"result_id"`
	QuizID         uint       `json:"quiz_id"`
	QuizTitle      string     `json:"quiz_title"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	Score          *float64   `json:"score"`
	Available      bool       `json:"available"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAns     int        `json:"correctAns"`
	Incorrect      int        `json:"incorrect"`
	Missed         int        `json:"missed"`
	CorrectPercent int        `json:"correctPercent"`
}

type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type ExportedReport struct {
	Filename string
	Data     []byte
}
