package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/review"
	"github.com/ieltsprep/practice-service/internal/scoring"
	"github.com/ieltsprep/practice-service/internal/validator"
)

type resultService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
	cacheTTL  time.Duration
}

func NewResultService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	cacheTTL time.Duration,
) ResultService {
	return &resultService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		opLogger:  NewServiceLogger(logger, "result"),
		validator: validator,
		cacheTTL:  cacheTTL,
	}
}

// ===== LIFECYCLE =====

// Start creates a draft result whose answer array has one empty slot per
// sub-question of the quiz.
func (s *resultService) Start(ctx context.Context, req *StartResultRequest, userID string) (*models.TestResult, error) {
	s.logger.Info("Starting test", "quiz_id", req.QuizID, "user_id", userID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.Status != models.QuizPublish {
		return nil, ErrQuizNotPublished
	}

	testPart := scoring.AttemptedPassages(len(quiz.Passages), req.TestPart)
	if len(req.TestPart) > 0 && len(testPart) != len(req.TestPart) {
		return nil, ErrInvalidTestPart
	}
	if len(req.TestPart) == 0 {
		testPart = []int{}
	}

	layout := scoring.BuildLayout(quiz.Passages)
	answers, err := scoring.EncodeAnswerPayload(make([]scoring.AnswerValue, layout.TotalSlots))
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	part, err := json.Marshal(testPart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode test part: %w", err)
	}

	result := &models.TestResult{
		QuizID:    quiz.ID,
		UserID:    userID,
		Status:    models.ResultDraft,
		Answers:   answers,
		TestPart:  part,
		TotalTime: req.TotalTime,
		TimeLeft:  req.TotalTime,
	}
	if err := s.repo.TestResult().Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to create test result: %w", err)
	}

	s.publish(ctx, events.NewResultStartedEvent(events.ResultStartedEvent{
		ResultID:  result.ID,
		QuizID:    quiz.ID,
		UserID:    userID,
		TestPart:  testPart,
		TotalTime: req.TotalTime,
		StartedAt: result.CreatedAt,
	}))

	s.logger.Info("Test started successfully", "result_id", result.ID, "slots", layout.TotalSlots)
	return result, nil
}

func (s *resultService) SaveProgress(ctx context.Context, id uint, req *SaveProgressRequest, userID string) (*models.TestResult, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}

	result, err := s.getDraft(ctx, id, userID, "save")
	if err != nil {
		return nil, err
	}

	answers, err := s.checkAnswers(result, req.Answers)
	if err != nil {
		return nil, err
	}

	var highlights []byte
	if req.Highlights != nil {
		if highlights, err = json.Marshal(req.Highlights); err != nil {
			return nil, fmt.Errorf("failed to encode highlights: %w", err)
		}
	}

	if err := s.repo.TestResult().SaveProgress(ctx, id, answers, highlights, req.TimeLeft); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	result.Answers = answers
	result.TimeLeft = req.TimeLeft
	if highlights != nil {
		result.Highlights = highlights
	}

	s.logger.Debug("Progress saved", "result_id", id, "time_left", req.TimeLeft)
	return result, nil
}

// Submit publishes a draft. The result is scored once here so the band can
// be stored; later reads recompute from the saved payload.
func (s *resultService) Submit(ctx context.Context, id uint, req *SubmitResultRequest, userID string) (report *ScoreReport, err error) {
	op := s.opLogger.WithOperation(ctx, "submit", userID)
	defer func() { op.LogResult(id, "test_result", err) }()

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}

	result, err := s.getDraft(ctx, id, userID, "submit")
	if err != nil {
		return nil, err
	}
	answers, err := s.checkAnswers(result, req.Answers)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result.Answers = answers
	result.TimeLeft = req.TimeLeft
	result.Status = models.ResultPublish
	result.SubmittedAt = &now

	report, err = s.buildReport(ctx, result)
	if err != nil {
		return nil, err
	}
	result.Score = report.Score

	if err := s.repo.TestResult().Publish(ctx, id, answers, req.TimeLeft, report.Score, now); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to publish test result: %w", err)
	}
	s.storeReport(ctx, report)

	s.publish(ctx, events.NewResultSubmittedEvent(events.ResultSubmittedEvent{
		ResultID:    id,
		QuizID:      result.QuizID,
		QuizTitle:   report.QuizTitle,
		UserID:      userID,
		TimeLeft:    req.TimeLeft,
		SubmittedAt: now,
	}))
	s.publish(ctx, scoredEvent(report))

	return report, nil
}

// ===== SCORING =====

// Score returns the score of a published result. Unreadable answer
// payloads yield ErrNoValidAttempt, never a partial score.
func (s *resultService) Score(ctx context.Context, id uint, userID string) (report *ScoreReport, err error) {
	op := s.opLogger.WithOperation(ctx, "score", userID)
	defer func() { op.LogResult(id, "test_result", err) }()

	result, err := s.getPublished(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.reportFor(ctx, result)
}

func (s *resultService) Review(ctx context.Context, id uint, userID string) (*ReviewResponse, error) {
	result, err := s.getPublished(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	report, err := s.reportFor(ctx, result)
	if err != nil {
		return nil, err
	}

	resp := &ReviewResponse{
		Report:   report,
		Passages: review.Project(result.Quiz, report.ScoreResult),
	}

	highlights, err := review.ParseHighlights(result.Highlights)
	if err != nil {
		s.logger.Warn("Ignoring unreadable highlights", "result_id", id, "error", err)
		return resp, nil
	}
	for _, pr := range resp.Passages {
		hs := review.ForPassage(highlights, pr.Passage)
		if len(hs) == 0 {
			continue
		}
		text := scoring.DisplayText(result.Quiz.Passages[pr.Passage].PassageContent)
		resp.Highlights = append(resp.Highlights, PassageHighlights{
			Passage: pr.Passage,
			Spans:   review.ApplyHighlights(text, hs),
		})
	}
	return resp, nil
}

// History lists the published results of a user with their counts
func (s *resultService) History(ctx context.Context, userID string, req *HistoryRequest) (*HistoryResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}

	status := models.ResultPublish
	filters := repositories.TestResultFilters{
		Status:    &status,
		QuizID:    req.QuizID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    "submitted_at",
		SortOrder: "desc",
	}
	if filters.Limit == 0 {
		filters.Limit = 20
	}

	results, total, err := s.repo.TestResult().GetByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get test history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(results))
	for _, result := range results {
		entry := HistoryEntry{
			ResultID:    result.ID,
			QuizID:      result.QuizID,
			SubmittedAt: result.SubmittedAt,
			Score:       result.Score,
		}
		if result.Quiz != nil {
			entry.QuizTitle = result.Quiz.Title
		}

		report, err := s.reportFor(ctx, result)
		switch {
		case err == nil:
			entry.Available = true
			entry.TotalQuestions = report.TotalQuestions
			entry.CorrectAns = report.CorrectAns
			entry.Incorrect = report.Incorrect
			entry.Missed = report.Missed
			entry.CorrectPercent = report.CorrectPercent
		case errors.Is(err, ErrNoValidAttempt), errors.Is(err, ErrQuizNotFound):
			s.logger.Warn("No score available for history entry", "result_id", result.ID, "error", err)
		default:
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &HistoryResponse{
		Entries: entries,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

func (s *resultService) ExportReport(ctx context.Context, id uint, userID string) (*ExportedReport, error) {
	report, err := s.Score(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	data, err := exportReportWorkbook(report)
	if err != nil {
		return nil, fmt.Errorf("failed to export score report: %w", err)
	}

	s.logger.Info("Score report exported", "result_id", id, "bytes", len(data))
	return &ExportedReport{
		Filename: fmt.Sprintf("result-%d.xlsx", id),
		Data:     data,
	}, nil
}
