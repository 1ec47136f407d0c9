// documents.go handles document upload and text extraction endpoints.
//
// POST   /api/v1/session/document — Upload a file, replacing the active document
// DELETE /api/v1/session/document — Remove the active document and clear history
// GET    /api/v1/session/summary  — Current summary (pending until a worker settles it)
// POST   /api/v1/extract          — Stateless extraction, nothing is stored
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/middleware"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
)

// readUpload reads the multipart "file" field. It writes the error
// response itself and returns ok=false when the upload is unusable.
func (h *Handler) readUpload(c *gin.Context) (extract.Upload, bool) {
	// Limit request body size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "file_too_large",
				Message: fmt.Sprintf("File exceeds the %d MB upload limit.", h.maxUploadBytes>>20),
				Code:    http.StatusRequestEntityTooLarge,
			})
			return extract.Upload{}, false
		}
		badRequest(c, "invalid_request", "No file provided. Upload a file with the field name 'file'.")
		return extract.Upload{}, false
	}
	defer file.Close()

	if !extract.IsAccepted(header.Filename) {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		badRequest(c, "invalid_file_type", fmt.Sprintf(
			"Unsupported file format '%s'. Accepted: pdf, doc, docx, ppt, pptx, xls, xlsx, txt, md, jpg, jpeg, png, gif.", ext))
		return extract.Upload{}, false
	}

	// Go Pattern: io.ReadAll reads the entire reader into a byte slice.
	// Uploads are capped above and the zip/PDF readers need random access.
	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "read_error", "Failed to read uploaded file")
		return extract.Upload{}, false
	}

	return extract.Upload{
		Name:     filepath.Base(header.Filename),
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, true
}

// UploadDocument makes the uploaded file the session's active document.
// POST /api/v1/session/document
//
// Extraction is synchronous; summarization is queued, so the response
// is 202 with a pending summary unless extraction already failed.
func (h *Handler) UploadDocument(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}

	state, err := h.Sessions.Upload(c.Request.Context(), middleware.GetSessionID(c), up)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, state)
}

// RemoveDocument discards the active document and clears the Q&A history.
// DELETE /api/v1/session/document
func (h *Handler) RemoveDocument(c *gin.Context) {
	if err := h.Sessions.RemoveDocument(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSummary returns the active document's summary.
// GET /api/v1/session/summary
func (h *Handler) GetSummary(c *gin.Context) {
	sum, err := h.Sessions.Summary(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// ExtractText extracts a file's text without storing anything.
// POST /api/v1/extract
func (h *Handler) ExtractText(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}

	res := h.Extractor.Extract(c.Request.Context(), up)
	c.JSON(http.StatusOK, models.ExtractionResponse{
		Name:      up.Name,
		Kind:      string(res.Kind),
		Strategy:  res.Strategy,
		Status:    res.Status,
		Text:      res.Text,
		PageCount: res.PageCount,
		WordCount: res.WordCount,
	})
}
