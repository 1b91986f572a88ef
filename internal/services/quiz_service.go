package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/scoring"
	"github.com/ieltsprep/practice-service/internal/validator"
)

type quizService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuizService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, validator *validator.Validator) QuizService {
	return &quizService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: validator,
	}
}

// Upsert stores a snapshot of a quiz document. Once any test result points
// at the quiz, edits must keep its answer-slot layout: stored answer arrays
// are only meaningful against the layout they were recorded with. Cached
// score reports of the quiz are dropped since they were computed against the
// old content.
func (s *quizService) Upsert(ctx context.Context, quiz *models.Quiz, actor Actor) (*models.Quiz, error) {
	s.logger.Info("Upserting quiz", "quiz_id", quiz.ID, "title", quiz.Title, "user_id", actor.UserID)

	if err := requireAdmin(actor, "quiz", quiz.ID, "edit"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(quiz); err != nil {
		return nil, err
	}
	if err := s.checkBandTable(ctx, quiz.BandTable); err != nil {
		return nil, err
	}
	if quiz.Status == "" {
		quiz.Status = models.QuizPublish
	}
	if quiz.Skill == "" {
		quiz.Skill = models.SkillReading
	}

	for _, issue := range s.validator.Quiz().Lint(quiz) {
		s.logger.Warn("Quiz lint warning",
			"quiz_id", quiz.ID,
			"passage", issue.Passage,
			"question", issue.Question,
			"rule", issue.Rule,
			"message", issue.Message)
	}

	if err := s.checkLayoutLocked(ctx, quiz); err != nil {
		return nil, err
	}

	if err := s.repo.Quiz().Upsert(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to upsert quiz: %w", err)
	}

	if err := s.cache.DeletePattern(ctx, cache.QuizScoreReportPattern(quiz.ID)); err != nil {
		s.logger.Warn("Failed to invalidate cached score reports", "quiz_id", quiz.ID, "error", err)
	}

	s.logger.Info("Quiz upserted successfully", "quiz_id", quiz.ID, "passages", len(quiz.Passages))
	return quiz, nil
}

// Get returns the full document, answers included
func (s *quizService) Get(ctx context.Context, id uint, actor Actor) (*models.Quiz, error) {
	if err := requireAdmin(actor, "quiz", id, "read"); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Layout returns the answer-slot placement of every question
func (s *quizService) Layout(ctx context.Context, id uint) (*QuizLayoutResponse, error) {
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	layout := scoring.BuildLayout(quiz.Passages)
	return &QuizLayoutResponse{
		QuizID:     quiz.ID,
		TotalSlots: layout.TotalSlots,
		Placements: layout.Placements,
	}, nil
}

func (s *quizService) Lint(ctx context.Context, id uint, actor Actor) (*QuizLintResponse, error) {
	if err := requireAdmin(actor, "quiz", id, "lint"); err != nil {
		return nil, err
	}
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	report := s.validator.Quiz().Lint(quiz)
	if report == nil {
		report = validator.LintReport{}
	}
	return &QuizLintResponse{
		QuizID: quiz.ID,
		Valid:  len(report.Errors()) == 0,
		Issues: report,
	}, nil
}

// AnswerKey returns the answer-slot array that scores full marks
func (s *quizService) AnswerKey(ctx context.Context, id uint, actor Actor) ([]scoring.AnswerValue, error) {
	if err := requireAdmin(actor, "quiz", id, "read answer key of"); err != nil {
		return nil, err
	}
	quiz, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return scoring.BuildAnswerKey(quiz), nil
}

// ===== HELPER FUNCTIONS =====

func (s *quizService) load(ctx context.Context, id uint) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return quiz, nil
}

// checkBandTable requires non built-in tables to have been imported
func (s *quizService) checkBandTable(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if _, err := loadBandTable(ctx, s.repo, name); err != nil {
		if errors.Is(err, ErrBandTableNotFound) {
			return NewValidationError("band_table", "band table has not been imported", name)
		}
		return err
	}
	return nil
}

// checkLayoutLocked rejects layout changes to a quiz that test results
// already reference.
func (s *quizService) checkLayoutLocked(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == 0 {
		return nil
	}
	stored, err := s.repo.Quiz().GetByID(ctx, quiz.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}
	if scoring.BuildLayout(stored.Passages).SameSlots(scoring.BuildLayout(quiz.Passages)) {
		return nil
	}

	count, err := s.repo.TestResult().CountByQuiz(ctx, quiz.ID)
	if err != nil {
		return fmt.Errorf("failed to count test results: %w", err)
	}
	if count > 0 {
		s.logger.Warn("Rejected layout change of attempted quiz", "quiz_id", quiz.ID, "test_results", count)
		return NewBusinessRuleError("quiz_layout_locked",
			"quiz has test results; its answer-slot layout cannot change",
			map[string]interface{}{"quiz_id": quiz.ID, "test_results": count})
	}
	return nil
}
