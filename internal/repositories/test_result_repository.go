package repositories

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/ieltsprep/practice-service/internal/models"
)

// TestResultRepository interface for test result operations
type TestResultRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, result *models.TestResult) error
	GetByID(ctx context.Context, id uint) (*models.TestResult, error)
	GetByIDWithQuiz(ctx context.Context, id uint) (*models.TestResult, error)

	// Query operations
	List(ctx context.Context, filters TestResultFilters) ([]*models.TestResult, int64, error)
	GetByUser(ctx context.Context, userID string, filters TestResultFilters) ([]*models.TestResult, int64, error)
	CountByQuiz(ctx context.Context, quizID uint) (int64, error)

	// Lifecycle. Both only touch draft results and return
	// gorm.ErrRecordNotFound when no draft row matched.
	SaveProgress(ctx context.Context, id uint, answers, highlights datatypes.JSON, timeLeft int) error
	Publish(ctx context.Context, id uint, answers datatypes.JSON, timeLeft int, score *float64, submittedAt time.Time) error
}

// BandTableRepository stores overrides of the built-in band tables
type BandTableRepository interface {
	Get(ctx context.Context, name string) (*models.BandTable, error)
	List(ctx context.Context) ([]*models.BandTable, error)
	Upsert(ctx context.Context, table *models.BandTable) error
}
