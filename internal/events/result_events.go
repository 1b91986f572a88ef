package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the result lifecycle events this service emits
type EventType string

const (
	EventResultStarted   EventType = "result.started"
	EventResultSubmitted EventType = "result.submitted"
	EventResultScored    EventType = "result.scored"
)

const (
	eventSource  = "practice-service"
	eventVersion = "1.0"
)

// ResultEvent is the envelope of every published event
type ResultEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Version   string         `json:"version"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ResultStartedEvent struct {
	ResultID  uint      `json:"result_id"`
	QuizID    uint      `json:"quiz_id"`
	UserID    string    `json:"user_id"`
	TestPart  []int     `json:"test_part"`
	TotalTime int       `json:"total_time"`
	StartedAt time.Time `json:"started_at"`
}

type ResultSubmittedEvent struct {
	ResultID    uint      `json:"result_id"`
	QuizID      uint      `json:"quiz_id"`
	QuizTitle   string    `json:"quiz_title"`
	UserID      string    `json:"user_id"`
	TimeLeft    int       `json:"time_left"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ResultScoredEvent struct {
	ResultID       uint     `json:"result_id"`
	QuizID         uint     `json:"quiz_id"`
	UserID         string   `json:"user_id"`
	TotalQuestions int      `json:"total_questions"`
	CorrectAns     int      `json:"correct_ans"`
	Incorrect      int      `json:"incorrect"`
	Missed         int      `json:"missed"`
	CorrectPercent int      `json:"correct_percent"`
	Band           *float64 `json:"band,omitempty"`
	BandTable      string   `json:"band_table,omitempty"`
}

func newResultEvent(t EventType, data any) *ResultEvent {
	return &ResultEvent{
		ID:        GenerateEventID(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewResultStartedEvent(data ResultStartedEvent) *ResultEvent {
	return newResultEvent(EventResultStarted, data)
}

func NewResultSubmittedEvent(data ResultSubmittedEvent) *ResultEvent {
	return newResultEvent(EventResultSubmitted, data)
}

func NewResultScoredEvent(data ResultScoredEvent) *ResultEvent {
	return newResultEvent(EventResultScored, data)
}

// GenerateEventID returns a fresh event ID
func GenerateEventID() string {
	return uuid.NewString()
}
