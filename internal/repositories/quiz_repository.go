package repositories

import (
	"context"

	"github.com/ieltsprep/practice-service/internal/models"
)

// QuizRepository stores snapshots of quiz documents
type QuizRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	Upsert(ctx context.Context, quiz *models.Quiz) error
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
	Delete(ctx context.Context, id uint) error
}
