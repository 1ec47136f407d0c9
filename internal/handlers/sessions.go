// sessions.go handles session lifecycle endpoints.
//
// POST /api/v1/sessions — Create a session and return its bearer token
// GET  /api/v1/session  — Everything the page renders
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/middleware"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// CreateSession starts a session.
// POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	sess, err := h.Sessions.Create(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := middleware.GenerateSessionToken(sess.ID, h.jwtSecret)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateSessionResponse{
		Session: *sess,
		Token:   token,
	})
}

// GetSession returns the session's document, summary and history.
// GET /api/v1/session
func (h *Handler) GetSession(c *gin.Context) {
	state, err := h.Sessions.State(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
