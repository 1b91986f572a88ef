package services

import (
	"context"
	"log/slog"

	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/scoring"
	"github.com/ieltsprep/practice-service/internal/validator"
)

// scoringService grades documents sent in the request. Nothing is stored.
type scoringService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewScoringService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ScoringService {
	return &scoringService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *scoringService) Calculate(ctx context.Context, req *CalculateScoreRequest) (*scoring.ScoreResult, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}

	answers, err := scoring.ParseAnswerPayload(req.Answers)
	if err != nil {
		return nil, noValidAttempt(err)
	}

	result := scoring.Score(answers, req.Quiz, req.TestPart)

	name := req.BandTable
	if name == "" {
		name = scoring.DefaultBandTable(req.Quiz)
	}
	table, err := loadBandTable(ctx, s.repo, name)
	switch {
	case err == nil:
		result.ApplyBand(table)
	case IsNotFound(err) && req.BandTable == "":
		s.logger.Debug("No band table for ad-hoc score", "band_table", name)
	default:
		return nil, err
	}

	s.logger.Info("Calculated ad-hoc score",
		"total_questions", result.TotalQuestions,
		"correct", result.CorrectAns,
		"percent", result.CorrectPercent)
	return result, nil
}
