package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
)

type BandTablePostgreSQL struct {
	db *gorm.DB
}

func NewBandTablePostgreSQL(db *gorm.DB) repositories.BandTableRepository {
	return &BandTablePostgreSQL{db: db}
}

func (b *BandTablePostgreSQL) Get(ctx context.Context, name string) (*models.BandTable, error) {
	var table models.BandTable
	if err := b.db.WithContext(ctx).Where("name = ?", name).First(&table).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (b *BandTablePostgreSQL) List(ctx context.Context) ([]*models.BandTable, error) {
	var tables []*models.BandTable
	if err := b.db.WithContext(ctx).Order("name ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (b *BandTablePostgreSQL) Upsert(ctx context.Context, table *models.BandTable) error {
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"entries", "updated_at"}),
		}).
		Create(table).Error
}
