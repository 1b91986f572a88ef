package postgres

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
)

type TestResultPostgreSQL struct {
	db *gorm.DB
}

func NewTestResultPostgreSQL(db *gorm.DB) repositories.TestResultRepository {
	return &TestResultPostgreSQL{db: db}
}

func (r *TestResultPostgreSQL) Create(ctx context.Context, result *models.TestResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *TestResultPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestResult, error) {
	var result models.TestResult
	if err := r.db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *TestResultPostgreSQL) GetByIDWithQuiz(ctx context.Context, id uint) (*models.TestResult, error) {
	var result models.TestResult
	if err := r.db.WithContext(ctx).Preload("Quiz").First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *TestResultPostgreSQL) List(ctx context.Context, filters repositories.TestResultFilters) ([]*models.TestResult, int64, error) {
	var results []*models.TestResult
	var total int64

	// apply filter first
	query := r.db.WithContext(ctx).Model(&models.TestResult{})
	query = applyTestResultFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Quiz").Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *TestResultPostgreSQL) GetByUser(ctx context.Context, userID string, filters repositories.TestResultFilters) ([]*models.TestResult, int64, error) {
	filters.UserID = &userID
	return r.List(ctx, filters)
}

// CountByQuiz counts drafts and published results alike; both hold answer
// arrays laid out against the quiz.
func (r *TestResultPostgreSQL) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TestResult{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

func (r *TestResultPostgreSQL) SaveProgress(ctx context.Context, id uint, answers, highlights datatypes.JSON, timeLeft int) error {
	updates := map[string]interface{}{
		"answers":   answers,
		"time_left": timeLeft,
	}
	if highlights != nil {
		updates["highlights"] = highlights
	}
	return r.updateDraft(ctx, id, updates)
}

func (r *TestResultPostgreSQL) Publish(ctx context.Context, id uint, answers datatypes.JSON, timeLeft int, score *float64, submittedAt time.Time) error {
	return r.updateDraft(ctx, id, map[string]interface{}{
		"answers":      answers,
		"time_left":    timeLeft,
		"score":        score,
		"status":       models.ResultPublish,
		"submitted_at": submittedAt,
	})
}

// updateDraft guards on status so a published result is never rewritten
func (r *TestResultPostgreSQL) updateDraft(ctx context.Context, id uint, updates map[string]interface{}) error {
	tx := r.db.WithContext(ctx).
		Model(&models.TestResult{}).
		Where("id = ? AND status = ?", id, models.ResultDraft).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func applyTestResultFilters(query *gorm.DB, filters repositories.TestResultFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}
