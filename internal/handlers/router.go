package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	resultHandler  *ResultHandler
	scoringHandler *ScoringHandler
	bandHandler    *BandHandler
	auth           gin.HandlerFunc
}

// NewHandlerManager wires handlers to services. A nil tokenParser switches
// authentication to the X-User-ID header.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	tokenParser TokenParser,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), logger),
		resultHandler:  NewResultHandler(serviceManager.Result(), logger),
		scoringHandler: NewScoringHandler(serviceManager.Scoring(), logger),
		bandHandler:    NewBandHandler(serviceManager.Band(), logger),
		auth:           AuthMiddleware(tokenParser, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.auth)
	{
		// Quiz snapshots
		quizzes := v1.Group("/quizzes")
		{
			quizzes.PUT("/:id", hm.quizHandler.UpsertQuiz)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/layout", hm.quizHandler.GetLayout)
			quizzes.GET("/:id/lint", hm.quizHandler.GetLint)
			quizzes.GET("/:id/answer-key", hm.quizHandler.GetAnswerKey)
		}

		// Test result lifecycle
		results := v1.Group("/results")
		{
			results.POST("", hm.resultHandler.StartResult)
			results.GET("/history", hm.resultHandler.GetHistory)
			results.PUT("/:id/progress", hm.resultHandler.SaveProgress)
			results.POST("/:id/submit", hm.resultHandler.SubmitResult)
			results.GET("/:id/score", hm.resultHandler.GetScore)
			results.GET("/:id/review", hm.resultHandler.GetReview)
			results.GET("/:id/export", hm.resultHandler.ExportReport)
		}

		// Stateless scoring
		scoring := v1.Group("/scoring")
		{
			scoring.POST("/calculate", hm.scoringHandler.Calculate)
		}

		// Band tables
		bands := v1.Group("/bands")
		{
			bands.GET("", hm.bandHandler.ListBands)
			bands.GET("/:name", hm.bandHandler.GetBand)
			bands.POST("/:name/import", hm.bandHandler.ImportBand)
		}
	}
}
