package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieltsprep/practice-service/internal/models"
	"github.com/ieltsprep/practice-service/internal/services"
	"github.com/ieltsprep/practice-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// UpsertQuiz stores the snapshot of a quiz published by the content API
// @Summary Upsert quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param quiz body models.Quiz true "Quiz document"
// @Success 200 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpsertQuiz(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Upserting quiz", "quiz_id", id)

	var quiz models.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}
	quiz.ID = id

	stored, err := h.quizService.Upsert(c.Request.Context(), &quiz, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stored)
}

// GetQuiz returns a stored quiz document
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.Get(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// GetLayout returns the answer-slot placement of every question
// @Router /quizzes/{id}/layout [get]
func (h *QuizHandler) GetLayout(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	layout, err := h.quizService.Layout(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, layout)
}

// GetLint reports questions that cannot be graded as typed
// @Router /quizzes/{id}/lint [get]
func (h *QuizHandler) GetLint(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	report, err := h.quizService.Lint(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetAnswerKey returns the answer-slot array of a perfect attempt
// @Router /quizzes/{id}/answer-key [get]
func (h *QuizHandler) GetAnswerKey(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	key, err := h.quizService.AnswerKey(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quiz_id": id, "answers": key})
}
