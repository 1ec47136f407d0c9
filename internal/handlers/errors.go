package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/session"
)

// errorFor maps a service error to its HTTP status and response body.
//
// Go Pattern: errors.Is walks the wrap chain, so services can add context
// with fmt.Errorf("...: %w", err) without breaking this mapping.
func errorFor(err error) (int, models.ErrorResponse) {
	var status int
	var resp models.ErrorResponse

	switch {
	case errors.Is(err, session.ErrBusy):
		status, resp = http.StatusConflict, models.ErrorResponse{
			Error:   "operation_in_progress",
			Message: "Another operation of this kind is still running for this session. Wait for it to finish.",
		}
	case errors.Is(err, session.ErrNoDocument):
		status, resp = http.StatusNotFound, models.ErrorResponse{
			Error:   "no_document",
			Message: "No document has been uploaded to this session",
		}
	case errors.Is(err, session.ErrEmptyQuestion):
		status, resp = http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "question cannot be empty",
		}
	case errors.Is(err, database.ErrNotFound):
		status, resp = http.StatusNotFound, models.ErrorResponse{
			Error:   "session_not_found",
			Message: "Session not found. Create a new one via POST /api/v1/sessions",
		}
	case errors.Is(err, localmodel.ErrUnavailable):
		status, resp = http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "model_unavailable",
			Message: "The local AI model could not be loaded. Check that the inference server is running.",
		}
	default:
		status, resp = http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong. Please try again.",
		}
	}

	resp.Code = status
	return status, resp
}

// respondError writes the mapped error. Unexpected errors are logged.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, resp := errorFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("❌ Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   code,
		Message: msg,
		Code:    http.StatusBadRequest,
	})
}
