package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
)

// MockQuizRepository is a mock implementation of QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	quiz, _ := args.Get(0).(*models.Quiz)
	return quiz, args.Error(1)
}

func (m *MockQuizRepository) Upsert(ctx context.Context, quiz *models.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	args := m.Called(ctx, filters)
	quizzes, _ := args.Get(0).([]*models.Quiz)
	return quizzes, args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTestResultRepository is a mock implementation of TestResultRepository
type MockTestResultRepository struct {
	mock.Mock
}

func (m *MockTestResultRepository) Create(ctx context.Context, result *models.TestResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockTestResultRepository) GetByID(ctx context.Context, id uint) (*models.TestResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*models.TestResult)
	return result, args.Error(1)
}

func (m *MockTestResultRepository) GetByIDWithQuiz(ctx context.Context, id uint) (*models.TestResult, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*models.TestResult)
	return result, args.Error(1)
}

func (m *MockTestResultRepository) List(ctx context.Context, filters repositories.TestResultFilters) ([]*models.TestResult, int64, error) {
	args := m.Called(ctx, filters)
	results, _ := args.Get(0).([]*models.TestResult)
	return results, args.Get(1).(int64), args.Error(2)
}

func (m *MockTestResultRepository) GetByUser(ctx context.Context, userID string, filters repositories.TestResultFilters) ([]*models.TestResult, int64, error) {
	args := m.Called(ctx, userID, filters)
	results, _ := args.Get(0).([]*models.TestResult)
	return results, args.Get(1).(int64), args.Error(2)
}

func (m *MockTestResultRepository) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTestResultRepository) SaveProgress(ctx context.Context, id uint, answers, highlights datatypes.JSON, timeLeft int) error {
	args := m.Called(ctx, id, answers, highlights, timeLeft)
	return args.Error(0)
}

func (m *MockTestResultRepository) Publish(ctx context.Context, id uint, answers datatypes.JSON, timeLeft int, score *float64, submittedAt time.Time) error {
	args := m.Called(ctx, id, answers, timeLeft, score, submittedAt)
	return args.Error(0)
}

// MockBandTableRepository is a mock implementation of BandTableRepository
type MockBandTableRepository struct {
	mock.Mock
}

func (m *MockBandTableRepository) Get(ctx context.Context, name string) (*models.BandTable, error) {
	args := m.Called(ctx, name)
	table, _ := args.Get(0).(*models.BandTable)
	return table, args.Error(1)
}

func (m *MockBandTableRepository) List(ctx context.Context) ([]*models.BandTable, error) {
	args := m.Called(ctx)
	tables, _ := args.Get(0).([]*models.BandTable)
	return tables, args.Error(1)
}

func (m *MockBandTableRepository) Upsert(ctx context.Context, table *models.BandTable) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

// MockRepository is a mock implementation of the main Repository interface
type MockRepository struct {
	quizRepo   *MockQuizRepository
	resultRepo *MockTestResultRepository
	bandRepo   *MockBandTableRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		quizRepo:   &MockQuizRepository{},
		resultRepo: &MockTestResultRepository{},
		bandRepo:   &MockBandTableRepository{},
	}
}

func (m *MockRepository) Quiz() repositories.QuizRepository             { return m.quizRepo }
func (m *MockRepository) TestResult() repositories.TestResultRepository { return m.resultRepo }
func (m *MockRepository) BandTable() repositories.BandTableRepository   { return m.bandRepo }

// memoryCache is an in-process CacheService for tests
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// DeletePattern only understands a trailing "*"
func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	prefix := pattern
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix = pattern[:n-1]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ===== FIXTURES =====

// readingQuiz has one passage with a two-gap question and a checkbox
// question with two correct options: four answer slots in total.
func readingQuiz() *models.Quiz {
	return &models.Quiz{
		ID:     7,
		Title:  "Reading Practice 1",
		Skill:  models.SkillReading,
		Status: models.QuizPublish,
		Passages: []models.Passage{{
			PassageContent: "<p>The river rose and the river fell</p>",
			Questions: []models.Question{
				{Type: []string{"fillup"}, Question: "The {cat} sat on the {mat}"},
				{Type: []string{"checkbox"}, ListOfOptions: []models.Option{
					{Option: "A", Correct: true},
					{Option: "B"},
					{Option: "C", Correct: true},
					{Option: "D"},
				}},
			},
		}},
	}
}

func publishedResult(answers string) *models.TestResult {
	submitted := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.TestResult{
		ID:          11,
		QuizID:      7,
		UserID:      "user-1",
		Status:      models.ResultPublish,
		Answers:     datatypes.JSON(answers),
		TestPart:    datatypes.JSON(`[]`),
		TotalTime:   3600,
		TimeLeft:    600,
		SubmittedAt: &submitted,
		Quiz:        readingQuiz(),
	}
}

func draftResult() *models.TestResult {
	return &models.TestResult{
		ID:        11,
		QuizID:    7,
		UserID:    "user-1",
		Status:    models.ResultDraft,
		Answers:   datatypes.JSON(`{"answers":[null,null,null,null]}`),
		TestPart:  datatypes.JSON(`[]`),
		TotalTime: 3600,
		TimeLeft:  3600,
		Quiz:      readingQuiz(),
	}
}
