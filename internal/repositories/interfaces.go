package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ieltsprep/practice-service/internal/models"
)

// Repository groups the repositories the services depend on.
type Repository interface {
	Quiz() QuizRepository
	TestResult() TestResultRepository
	BandTable() BandTableRepository
}

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Skill     *models.QuizSkill  `json:"skill"`
	Status    *models.QuizStatus `json:"status"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type TestResultFilters struct {
	Status    *models.ResultStatus `json:"status"`
	UserID    *string              `json:"user_id"`
	QuizID    *uint                `json:"quiz_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "submitted_at", "score"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
