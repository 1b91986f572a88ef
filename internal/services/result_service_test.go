package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/scoring"
	"github.com/ieltsprep/practice-service/internal/validator"
)

const threeOfFour = `{"answers":["cat","dog",[0,2],null]}`

type resultServiceFixture struct {
	repo      *MockRepository
	cache     *memoryCache
	publisher *events.MockEventPublisher
	service   ResultService
}

func newResultServiceFixture() *resultServiceFixture {
	repo := newMockRepository()
	memCache := newMemoryCache()
	publisher := events.NewMockEventPublisher(testLogger())
	return &resultServiceFixture{
		repo:      repo,
		cache:     memCache,
		publisher: publisher,
		service:   NewResultService(repo, memCache, publisher, testLogger(), validator.New(), time.Minute),
	}
}

// overrideAcademicBand stores a custom academic_reading table: 3-4 correct is band 5
func (f *resultServiceFixture) overrideAcademicBand() *mock.Call {
	return f.repo.bandRepo.On("Get", mock.Anything, scoring.BandAcademicReading).Return(&models.BandTable{
		Name:    scoring.BandAcademicReading,
		Entries: datatypes.JSON(`[{"range":"3-4","band":5},{"range":"0-2","band":2}]`),
	}, nil)
}

func TestResultService_Start(t *testing.T) {
	tests := []struct {
		name        string
		req         *StartResultRequest
		setupMocks  func(*MockRepository)
		expectError error
		expectSlots int
	}{
		{
			name: "creates draft with one slot per sub-question",
			req:  &StartResultRequest{QuizID: 7, TotalTime: 3600},
			setupMocks: func(repo *MockRepository) {
				repo.quizRepo.On("GetByID", mock.Anything, uint(7)).Return(readingQuiz(), nil)
				repo.resultRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.TestResult) bool {
					return r.UserID == "user-1" && r.Status == models.ResultDraft && r.TimeLeft == 3600
				})).Return(nil)
			},
			expectSlots: 4,
		},
		{
			name: "quiz not found",
			req:  &StartResultRequest{QuizID: 9},
			setupMocks: func(repo *MockRepository) {
				repo.quizRepo.On("GetByID", mock.Anything, uint(9)).Return(nil, gorm.ErrRecordNotFound)
			},
			expectError: ErrQuizNotFound,
		},
		{
			name: "test part outside the quiz",
			req:  &StartResultRequest{QuizID: 7, TestPart: []int{0, 3}},
			setupMocks: func(repo *MockRepository) {
				repo.quizRepo.On("GetByID", mock.Anything, uint(7)).Return(readingQuiz(), nil)
			},
			expectError: ErrInvalidTestPart,
		},
		{
			name: "draft quiz cannot be started",
			req:  &StartResultRequest{QuizID: 7},
			setupMocks: func(repo *MockRepository) {
				quiz := readingQuiz()
				quiz.Status = models.QuizDraft
				repo.quizRepo.On("GetByID", mock.Anything, uint(7)).Return(quiz, nil)
			},
			expectError: ErrQuizNotPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResultServiceFixture()
			tt.setupMocks(f.repo)

			result, err := f.service.Start(context.Background(), tt.req, "user-1")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, result)
				assert.Empty(t, f.publisher.GetPublishedEvents())
			} else {
				require.NoError(t, err)
				answers, err := scoring.ParseAnswerPayload(result.Answers)
				require.NoError(t, err)
				assert.Len(t, answers, tt.expectSlots)

				published := f.publisher.GetPublishedEvents()
				require.Len(t, published, 1)
				assert.Equal(t, events.EventResultStarted, published[0].Type)
			}
			f.repo.quizRepo.AssertExpectations(t)
			f.repo.resultRepo.AssertExpectations(t)
		})
	}
}

func TestResultService_SaveProgress(t *testing.T) {
	highlights := `[{"anchorText":"river","start":4,"end":9,"type":"highlight","passage":0}]`

	t.Run("persists answers and highlights of a draft", func(t *testing.T) {
		f := newResultServiceFixture()
		f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(draftResult(), nil)
		f.repo.resultRepo.On("SaveProgress", mock.Anything, uint(11),
			mock.MatchedBy(func(a datatypes.JSON) bool { return string(a) == `{"answers":["cat",null]}` }),
			mock.Anything, 1200).Return(nil)

		req := &SaveProgressRequest{TimeLeft: 1200, Answers: json.RawMessage(`{"answers":["cat",null]}`)}
		require.NoError(t, json.Unmarshal([]byte(highlights), &req.Highlights))

		result, err := f.service.SaveProgress(context.Background(), 11, req, "user-1")

		require.NoError(t, err)
		assert.Equal(t, 1200, result.TimeLeft)
		assert.Contains(t, string(result.Highlights), "river")
		f.repo.resultRepo.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		result  *models.TestResult
		userID  string
		answers string
		check   func(*testing.T, error)
	}{
		{
			name:    "published result is immutable",
			result:  publishedResult(threeOfFour),
			userID:  "user-1",
			answers: threeOfFour,
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrResultAlreadySubmitted) },
		},
		{
			name:    "other users are rejected",
			result:  draftResult(),
			userID:  "user-2",
			answers: threeOfFour,
			check: func(t *testing.T, err error) {
				var pe *PermissionError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "save", pe.Action)
				assert.True(t, IsUnauthorized(err))
			},
		},
		{
			name:    "unparsable payload",
			result:  draftResult(),
			userID:  "user-1",
			answers: `{"answers":"cat"}`,
			check:   func(t *testing.T, err error) { assert.True(t, IsValidation(err)) },
		},
		{
			name:    "more answers than slots",
			result:  draftResult(),
			userID:  "user-1",
			answers: `{"answers":[1,2,3,4,5]}`,
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrAnswerCountMismatch) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResultServiceFixture()
			f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(tt.result, nil)

			_, err := f.service.SaveProgress(context.Background(), 11,
				&SaveProgressRequest{Answers: json.RawMessage(tt.answers)}, tt.userID)

			require.Error(t, err)
			tt.check(t, err)
			f.repo.resultRepo.AssertNotCalled(t, "SaveProgress", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestResultService_Submit(t *testing.T) {
	t.Run("publishes, stores band and emits events", func(t *testing.T) {
		f := newResultServiceFixture()
		f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(draftResult(), nil)
		f.overrideAcademicBand()
		f.repo.resultRepo.On("Publish", mock.Anything, uint(11), mock.Anything, 600,
			mock.MatchedBy(func(score *float64) bool { return score != nil && *score == 5 }),
			mock.Anything).Return(nil)

		report, err := f.service.Submit(context.Background(), 11,
			&SubmitResultRequest{Answers: json.RawMessage(threeOfFour), TimeLeft: 600}, "user-1")

		require.NoError(t, err)
		assert.Equal(t, 4, report.TotalQuestions)
		assert.Equal(t, 3, report.CorrectAns)
		assert.Equal(t, 1, report.Incorrect)
		assert.Equal(t, 0, report.Missed)
		assert.Equal(t, 75, report.CorrectPercent)
		assert.Equal(t, 3000, report.TimeSpent)
		require.NotNil(t, report.Score)
		assert.Equal(t, 5.0, *report.Score)
		assert.True(t, f.cache.has(cache.ScoreReportKey(7, 11)))

		published := f.publisher.GetPublishedEvents()
		require.Len(t, published, 2)
		assert.Equal(t, events.EventResultSubmitted, published[0].Type)
		assert.Equal(t, events.EventResultScored, published[1].Type)
		f.repo.resultRepo.AssertExpectations(t)
	})

	t.Run("lost race with another submit", func(t *testing.T) {
		f := newResultServiceFixture()
		f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(draftResult(), nil)
		f.repo.bandRepo.On("Get", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
		f.repo.resultRepo.On("Publish", mock.Anything, uint(11), mock.Anything, 0, mock.Anything, mock.Anything).
			Return(gorm.ErrRecordNotFound)

		_, err := f.service.Submit(context.Background(), 11,
			&SubmitResultRequest{Answers: json.RawMessage(threeOfFour)}, "user-1")

		assert.ErrorIs(t, err, ErrResultAlreadySubmitted)
		assert.Empty(t, f.publisher.GetPublishedEvents())
	})

	t.Run("already published", func(t *testing.T) {
		f := newResultServiceFixture()
		f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(publishedResult(threeOfFour), nil)

		_, err := f.service.Submit(context.Background(), 11,
			&SubmitResultRequest{Answers: json.RawMessage(threeOfFour)}, "user-1")

		assert.ErrorIs(t, err, ErrResultAlreadySubmitted)
	})
}

func TestResultService_Score(t *testing.T) {
	tests := []struct {
		name        string
		result      *models.TestResult
		lookupErr   error
		expectError error
	}{
		{name: "broken payload", result: publishedResult(`{"answers":`), expectError: ErrNoValidAttempt},
		{name: "blank payload", result: publishedResult(``), expectError: ErrNoValidAttempt},
		{name: "missing answers array", result: publishedResult(`{}`), expectError: ErrNoValidAttempt},
		{name: "draft result", result: draftResult(), expectError: ErrResultNotPublished},
		{name: "unknown result", lookupErr: gorm.ErrRecordNotFound, expectError: ErrResultNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResultServiceFixture()
			f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(tt.result, tt.lookupErr)

			report, err := f.service.Score(context.Background(), 11, "user-1")

			assert.ErrorIs(t, err, tt.expectError)
			assert.Nil(t, report)
		})
	}

	t.Run("second read is served from cache", func(t *testing.T) {
		f := newResultServiceFixture()
		f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(publishedResult(threeOfFour), nil)
		f.overrideAcademicBand().Once()

		first, err := f.service.Score(context.Background(), 11, "user-1")
		require.NoError(t, err)
		second, err := f.service.Score(context.Background(), 11, "user-1")
		require.NoError(t, err)

		assert.Equal(t, first.CorrectAns, second.CorrectAns)
		assert.Equal(t, first.Details, second.Details)
		assert.Equal(t, scoring.BandAcademicReading, second.BandTable)
		f.repo.bandRepo.AssertExpectations(t)
	})

	t.Run("falls back to the built-in band table", func(t *testing.T) {
		f := newResultServiceFixture()
		f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(publishedResult(threeOfFour), nil)
		f.repo.bandRepo.On("Get", mock.Anything, scoring.BandAcademicReading).Return(nil, gorm.ErrRecordNotFound)

		report, err := f.service.Score(context.Background(), 11, "user-1")

		require.NoError(t, err)
		require.NotNil(t, report.Score)
		assert.Equal(t, 0.0, *report.Score)
		assert.Equal(t, "Passage 1: Questions 1-4", report.Details[0].Label)
	})
}

func TestResultService_Review(t *testing.T) {
	f := newResultServiceFixture()
	result := publishedResult(threeOfFour)
	result.Highlights = datatypes.JSON(`[{"anchorText":"river","start":4,"end":9,"type":"highlight","passage":0}]`)
	f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(result, nil)
	f.repo.bandRepo.On("Get", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	resp, err := f.service.Review(context.Background(), 11, "user-1")

	require.NoError(t, err)
	require.Len(t, resp.Passages, 1)
	require.Len(t, resp.Passages[0].Questions, 2)
	assert.Equal(t,
		`The <span class="answer-correct">cat</span> sat on the <span class="answer-incorrect"><s>dog</s> <ins>mat</ins></span>`,
		resp.Passages[0].Questions[0].Text)

	require.Len(t, resp.Highlights, 1)
	spans := resp.Highlights[0].Spans
	require.Len(t, spans, 3)
	assert.Equal(t, "river", spans[1].Text)
	assert.Equal(t, 4, spans[1].Start)
}

func TestResultService_History(t *testing.T) {
	f := newResultServiceFixture()
	good := publishedResult(threeOfFour)
	broken := publishedResult(`{"answers":`)
	broken.ID = 12

	f.repo.resultRepo.On("GetByUser", mock.Anything, "user-1", mock.MatchedBy(func(filters repositories.TestResultFilters) bool {
		return filters.Status != nil && *filters.Status == models.ResultPublish && filters.Limit == 20
	})).Return([]*models.TestResult{good, broken}, int64(2), nil)
	f.repo.bandRepo.On("Get", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	resp, err := f.service.History(context.Background(), "user-1", &HistoryRequest{})

	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.Entries, 2)

	assert.True(t, resp.Entries[0].Available)
	assert.Equal(t, "Reading Practice 1", resp.Entries[0].QuizTitle)
	assert.Equal(t, 3, resp.Entries[0].CorrectAns)
	assert.Equal(t, 1, resp.Entries[0].Incorrect)
	assert.Equal(t, 0, resp.Entries[0].Missed)

	assert.False(t, resp.Entries[1].Available)
	assert.Equal(t, uint(12), resp.Entries[1].ResultID)
}

func TestResultService_ExportReport(t *testing.T) {
	f := newResultServiceFixture()
	f.repo.resultRepo.On("GetByIDWithQuiz", mock.Anything, uint(11)).Return(publishedResult(threeOfFour), nil)
	f.overrideAcademicBand()

	exported, err := f.service.ExportReport(context.Background(), 11, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "result-11.xlsx", exported.Filename)

	wb, err := excelize.OpenReader(bytes.NewReader(exported.Data))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{summarySheet, answerSheet}, wb.GetSheetList())

	band, err := wb.GetCellValue(summarySheet, "B10")
	require.NoError(t, err)
	assert.Equal(t, "5.0", band)

	rows, err := wb.GetRows(answerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"1", "Passage 1: Questions 1-4", "cat", "cat", "correct"}, rows[1])
	assert.Equal(t, "incorrect", rows[2][4])
}

func TestResultService_ErrorsAreClassified(t *testing.T) {
	err := noValidAttempt(scoring.ErrEmptyPayload)

	assert.ErrorIs(t, err, ErrNoValidAttempt)
	assert.False(t, errors.Is(err, scoring.ErrEmptyPayload))
	assert.False(t, IsNotFound(err))
}
