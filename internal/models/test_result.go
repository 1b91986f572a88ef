package models

import (
	"time"

	"gorm.io/datatypes"
)

type ResultStatus string

const (
	ResultDraft   ResultStatus = "draft"
	ResultPublish ResultStatus = "publish"
)

// TestResult is one user's attempt at a quiz. Answers holds the JSON payload
// {"answers": [...]} and TestPart the attempted passage indices.
type TestResult struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	QuizID      uint           `json:"quiz_id" gorm:"not null;index"`
	UserID      string         `json:"user_id" gorm:"not null;size:100;index"`
	Status      ResultStatus   `json:"status" gorm:"size:20;default:draft;index"`
	Answers     datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	TestPart    datatypes.JSON `json:"test_part" gorm:"type:jsonb"`
	Highlights  datatypes.JSON `json:"highlights,omitempty" gorm:"type:jsonb"`
	TotalTime   int            `json:"total_time"` // seconds
	TimeLeft    int            `json:"time_left"`  // seconds
	Score       *float64       `json:"score"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Quiz *Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
}

func (TestResult) TableName() string {
	return "test_results"
}

func (r *TestResult) IsPublished() bool {
	return r.Status == ResultPublish
}

// BandTable is a stored override of a built-in correct-count to band table.
type BandTable struct {
	Name      string         `json:"name" gorm:"primaryKey;size:50"`
	Entries   datatypes.JSON `json:"entries" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (BandTable) TableName() string {
	return "band_tables"
}
