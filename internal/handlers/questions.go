// questions.go handles the session Q&A endpoints.
//
// POST /api/v1/session/questions — Ask a question about the active document
// GET  /api/v1/session/questions — Q&A history, oldest first
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/middleware"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// AskQuestion answers a question and appends it to the history.
// POST /api/v1/session/questions
//
// Answers that fall back to a canned message still return 200; the
// exchange's status says whether the model produced it.
func (h *Handler) AskQuestion(c *gin.Context) {
	var req models.AskQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Request body must be JSON with a non-empty 'question' field")
		return
	}

	exchange, err := h.Sessions.Ask(c.Request.Context(), middleware.GetSessionID(c), req.Question)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, exchange)
}

// ListQuestions returns the Q&A history.
// GET /api/v1/session/questions
func (h *Handler) ListQuestions(c *gin.Context) {
	history, err := h.Sessions.History(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if history == nil {
		history = []models.QAExchange{}
	}
	c.JSON(http.StatusOK, history)
}
