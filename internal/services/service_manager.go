package services

import (
	"log/slog"
	"time"

	"github.com/ieltsprep/practice-service/internal/cache"
	"github.com/ieltsprep/practice-service/internal/events"
	"github.com/ieltsprep/practice-service/internal/repositories"
	"github.com/ieltsprep/practice-service/internal/validator"
)

type serviceManager struct {
	quiz      QuizService
	result    ResultService
	scoring   ScoringService
	band      BandService
	validator *validator.Validator
}

// ServiceManagerConfig collects the collaborators shared by every service
type ServiceManagerConfig struct {
	Repository    repositories.Repository
	Cache         cache.CacheService
	Publisher     events.EventPublisher
	Logger        *slog.Logger
	Validator     *validator.Validator
	ScoreCacheTTL time.Duration
}

func NewServiceManager(cfg ServiceManagerConfig) ServiceManager {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoopCache()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}

	return &serviceManager{
		quiz:      NewQuizService(cfg.Repository, cfg.Cache, cfg.Logger, cfg.Validator),
		result:    NewResultService(cfg.Repository, cfg.Cache, cfg.Publisher, cfg.Logger, cfg.Validator, cfg.ScoreCacheTTL),
		scoring:   NewScoringService(cfg.Repository, cfg.Logger, cfg.Validator),
		band:      NewBandService(cfg.Repository, cfg.Cache, cfg.Logger),
		validator: cfg.Validator,
	}
}

func (m *serviceManager) Quiz() QuizService               { return m.quiz }
func (m *serviceManager) Result() ResultService           { return m.result }
func (m *serviceManager) Scoring() ScoringService         { return m.scoring }
func (m *serviceManager) Band() BandService               { return m.band }
func (m *serviceManager) Validator() *validator.Validator { return m.validator }
