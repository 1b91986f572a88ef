package postgres

import (
	"gorm.io/gorm"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
)

type repository struct {
	quiz       repositories.QuizRepository
	testResult repositories.TestResultRepository
	bandTable  repositories.BandTableRepository
}

// NewRepository wires every postgres repository onto one connection
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		quiz:       NewQuizPostgreSQL(db),
		testResult: NewTestResultPostgreSQL(db),
		bandTable:  NewBandTablePostgreSQL(db),
	}
}

func (r *repository) Quiz() repositories.QuizRepository             { return r.quiz }
func (r *repository) TestResult() repositories.TestResultRepository { return r.testResult }
func (r *repository) BandTable() repositories.BandTableRepository   { return r.bandTable }

// AutoMigrate creates or updates the tables this service owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Quiz{}, &models.TestResult{}, &models.BandTable{})
}

// ===== SHARED HELPERS =====

var sortColumns = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"submitted_at": "submitted_at",
	"score":        "score",
	"title":        "title",
}

// applyPaginationAndSort whitelists the sort column and caps the page size
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
