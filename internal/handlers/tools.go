// tools.go exposes the summarizer and answerer without a session. Nothing
// is stored and no busy flags apply.
//
// POST /api/v1/summarize — {text}
// POST /api/v1/answer    — {question, context}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// Summarize summarizes the posted text.
// POST /api/v1/summarize
func (h *Handler) Summarize(c *gin.Context) {
	var req models.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Request body must be JSON with a 'text' field")
		return
	}

	res, err := h.Summary.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SummaryResponse{
		Status: res.Status,
		Text:   res.Text,
		Mode:   res.Mode,
		Cached: res.Cached,
	})
}

// AnswerQuestion answers a question against an optional context.
// POST /api/v1/answer
func (h *Handler) AnswerQuestion(c *gin.Context) {
	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		badRequest(c, "invalid_request", "Request body must be JSON with a non-empty 'question' field")
		return
	}

	res, err := h.Answer.Answer(c.Request.Context(), req.Question, req.Context)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AnswerResponse{
		Status: res.Status,
		Text:   res.Text,
		Source: res.Source,
		Score:  res.Score,
	})
}
