package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewResultHandler(resultService services.ResultService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// StartResult creates a draft result for the caller
// @Summary Start test
// @Tags results
// @Accept json
// @Produce json
// @Param request body services.StartResultRequest true "Quiz and attempted passages"
// @Success 201 {object} models.TestResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /results [post]
func (h *ResultHandler) StartResult(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.StartResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	h.LogRequest(c, "Starting test", "quiz_id", req.QuizID)

	result, err := h.resultService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// SaveProgress stores answers and highlights of a draft
// @Router /results/{id}/progress [put]
func (h *ResultHandler) SaveProgress(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	result, err := h.resultService.SaveProgress(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitResult publishes a draft and returns its score
// @Router /results/{id}/submit [post]
func (h *ResultHandler) SubmitResult(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting test", "result_id", id)

	var req services.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	report, err := h.resultService.Submit(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetScore returns the score report of a published result
// @Failure 422 {object} ErrorResponse "No score available"
// @Router /results/{id}/score [get]
func (h *ResultHandler) GetScore(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	report, err := h.resultService.Score(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetReview returns the annotated review of a published result
// @Router /results/{id}/review [get]
func (h *ResultHandler) GetReview(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	review, err := h.resultService.Review(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// ExportReport downloads the score report as a workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /results/{id}/export [get]
func (h *ResultHandler) ExportReport(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	exported, err := h.resultService.ExportReport(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exported.Filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, exported.Data)
}

// GetHistory lists the caller's published results
// @Param quiz_id query uint false "Quiz ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Router /results/history [get]
func (h *ResultHandler) GetHistory(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	history, err := h.resultService.History(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}
