package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/scoring"
)

// ===== ACCESS HELPERS =====

func (s *resultService) getResult(ctx context.Context, id uint, userID, action string) (*models.TestResult, error) {
	result, err := s.repo.TestResult().GetByIDWithQuiz(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}
	if result.UserID != userID {
		return nil, NewPermissionError(userID, id, "test_result", action, "not the owner")
	}
	if result.Quiz == nil {
		return nil, ErrQuizNotFound
	}
	return result, nil
}

func (s *resultService) getDraft(ctx context.Context, id uint, userID, action string) (*models.TestResult, error) {
	result, err := s.getResult(ctx, id, userID, action)
	if err != nil {
		return nil, err
	}
	if result.IsPublished() {
		return nil, ErrResultAlreadySubmitted
	}
	return result, nil
}

func (s *resultService) getPublished(ctx context.Context, id uint, userID string) (*models.TestResult, error) {
	result, err := s.getResult(ctx, id, userID, "read")
	if err != nil {
		return nil, err
	}
	if !result.IsPublished() {
		return nil, ErrResultNotPublished
	}
	return result, nil
}

// checkAnswers parses an incoming payload and re-encodes it canonically
func (s *resultService) checkAnswers(result *models.TestResult, raw []byte) (datatypes.JSON, error) {
	answers, err := scoring.ParseAnswerPayload(raw)
	if err != nil {
		return nil, NewValidationError("answers", err.Error(), nil)
	}

	layout := scoring.BuildLayout(result.Quiz.Passages)
	if len(answers) > layout.TotalSlots {
		return nil, fmt.Errorf("%w: %d answers for %d slots", ErrAnswerCountMismatch, len(answers), layout.TotalSlots)
	}

	encoded, err := scoring.EncodeAnswerPayload(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	return encoded, nil
}

// ===== SCORE REPORTS =====

// reportFor returns the cached report of a published result, scoring it on a miss
func (s *resultService) reportFor(ctx context.Context, result *models.TestResult) (*ScoreReport, error) {
	key := cache.ScoreReportKey(result.QuizID, result.ID)

	var cached ScoreReport
	err := s.cache.Get(ctx, key, &cached)
	if err == nil && cached.ScoreResult != nil {
		return &cached, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Score cache unavailable", "result_id", result.ID, "error", err)
	}

	report, err := s.buildReport(ctx, result)
	if err != nil {
		return nil, err
	}
	s.storeReport(ctx, report)
	return report, nil
}

func (s *resultService) buildReport(ctx context.Context, result *models.TestResult) (*ScoreReport, error) {
	quiz := result.Quiz
	if quiz == nil {
		return nil, ErrQuizNotFound
	}

	answers, err := scoring.ParseAnswerPayload(result.Answers)
	if err != nil {
		return nil, noValidAttempt(err)
	}
	testPart, err := scoring.ParseTestPart(result.TestPart)
	if err != nil {
		return nil, noValidAttempt(err)
	}

	score := scoring.Score(answers, quiz, testPart)

	name := scoring.DefaultBandTable(quiz)
	table, err := loadBandTable(ctx, s.repo, name)
	switch {
	case err == nil:
		score.ApplyBand(table)
	case errors.Is(err, ErrBandTableNotFound):
		s.logger.Warn("Band table not found, reporting without band", "band_table", name, "quiz_id", quiz.ID)
	default:
		return nil, err
	}

	timeSpent := result.TotalTime - result.TimeLeft
	if timeSpent < 0 {
		timeSpent = 0
	}

	return &ScoreReport{
		ResultID:    result.ID,
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		UserID:      result.UserID,
		SubmittedAt: result.SubmittedAt,
		TimeSpent:   timeSpent,
		ScoreResult: score,
	}, nil
}

func (s *resultService) storeReport(ctx context.Context, report *ScoreReport) {
	key := cache.ScoreReportKey(report.QuizID, report.ResultID)
	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache score report", "result_id", report.ResultID, "error", err)
	}
}

func noValidAttempt(err error) error {
	return fmt.Errorf("%w: %v", ErrNoValidAttempt, err)
}

// ===== EVENTS =====

// publish never fails the calling operation; delivery errors are logged
func (s *resultService) publish(ctx context.Context, event *events.ResultEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResultEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish result event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}

func scoredEvent(report *ScoreReport) *events.ResultEvent {
	return events.NewResultScoredEvent(events.ResultScoredEvent{
		ResultID:       report.ResultID,
		QuizID:         report.QuizID,
		UserID:         report.UserID,
		TotalQuestions: report.TotalQuestions,
		CorrectAns:     report.CorrectAns,
		Incorrect:      report.Incorrect,
		Missed:         report.Missed,
		CorrectPercent: report.CorrectPercent,
		Band:           report.Score,
		BandTable:      report.BandTable,
	})
}

// ===== EXPORT =====

const (
	summarySheet = "Summary"
	answerSheet  = "Answers"
)

// exportReportWorkbook writes a summary sheet and one row per sub-question
func exportReportWorkbook(report *ScoreReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	band := "-"
	if report.Score != nil {
		band = fmt.Sprintf("%.1f", *report.Score)
	}
	submitted := ""
	if report.SubmittedAt != nil {
		submitted = report.SubmittedAt.Format("2006-01-02 15:04:05")
	}
	summary := [][]interface{}{
		{"Quiz", report.QuizTitle},
		{"Result ID", report.ResultID},
		{"Submitted At", submitted},
		{"Time Spent (minutes)", report.TimeSpent / 60},
		{"Total Questions", report.TotalQuestions},
		{"Correct", report.CorrectAns},
		{"Incorrect", report.Incorrect},
		{"Missed", report.Missed},
		{"Correct %", report.CorrectPercent},
		{"Band", band},
		{"Band Table", report.BandTable},
	}
	for i, row := range summary {
		row := row
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	index, err := f.NewSheet(answerSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []interface{}{"Question", "Section", "Your Answer", "Correct Answer", "Status"}
	if err := f.SetSheetRow(answerSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	rowIndex := 2
	for _, ps := range report.Details {
		for _, o := range ps.Outcomes {
			row := []interface{}{o.Number, ps.Label, o.UserAnswer, o.Answer, string(o.Status)}
			if err := f.SetSheetRow(answerSheet, fmt.Sprintf("A%d", rowIndex), &row); err != nil {
				return nil, fmt.Errorf("failed to write answer row: %w", err)
			}
			rowIndex++
		}
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
