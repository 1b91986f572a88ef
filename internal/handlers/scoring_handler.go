package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type ScoringHandler struct {
	BaseHandler
	scoringService services.ScoringService
}

func NewScoringHandler(scoringService services.ScoringService, logger utils.Logger) *ScoringHandler {
	return &ScoringHandler{
		BaseHandler:    NewBaseHandler(logger),
		scoringService: scoringService,
	}
}

// Calculate scores a quiz document and answers sent in the request
// @Summary Calculate score
// @Tags scoring
// @Accept json
// @Produce json
// @Param request body services.CalculateScoreRequest true "Quiz, answers and attempted passages"
// @Success 200 {object} scoring.ScoreResult
// @Failure 422 {object} ErrorResponse "No score available"
// @Router /scoring/calculate [post]
func (h *ScoringHandler) Calculate(c *gin.Context) {
	var req services.CalculateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	result, err := h.scoringService.Calculate(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
