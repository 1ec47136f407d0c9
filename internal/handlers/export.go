// export.go exports a session's summary and Q&A history as a download.
//
// Supported formats:
//   - txt  — Plain text
//   - md   — Markdown with a document metadata table
//   - json — Full JSON with all metadata
//
// Go Pattern: Each export format is its own function. This makes it easy
// to add new formats later — just add a case to the switch and a new
// formatter function.
package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/middleware"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/session"
)

const defaultExportName = "learnsmart-session"

var exportContentTypes = map[string]string{
	"txt":  "text/plain; charset=utf-8",
	"md":   "text/markdown; charset=utf-8",
	"json": "application/json; charset=utf-8",
}

// ExportSession exports the summary and history in the requested format.
// GET /api/v1/session/export?format=txt|md|json
//
// Response headers are set for file download:
//   - Content-Type: appropriate MIME type
//   - Content-Disposition: attachment with filename
func (h *Handler) ExportSession(c *gin.Context) {
	format := c.DefaultQuery("format", "txt")

	// Validate format before doing any database work
	contentType, ok := exportContentTypes[format]
	if !ok {
		badRequest(c, "invalid_format", "Supported formats: txt, md, json")
		return
	}

	state, err := h.Sessions.State(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if state.Document == nil && len(state.History) == 0 {
		h.respondError(c, session.ErrNoDocument)
		return
	}

	// Go Pattern: We sanitize the name for use in filenames. This prevents
	// issues with special characters in Content-Disposition headers.
	filename := defaultExportName
	if state.Document != nil {
		if name := sanitizeFilename(strings.TrimSuffix(state.Document.Name, filepath.Ext(state.Document.Name))); name != "" {
			filename = name
		}
	}

	var body []byte
	switch format {
	case "txt":
		body = renderTXT(state)
	case "md":
		body = renderMarkdown(state)
	case "json":
		body, err = renderJSON(state, time.Now().UTC())
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "export_error",
				Message: "Failed to generate JSON export",
				Code:    http.StatusInternalServerError,
			})
			return
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, filename, format))
	c.Data(http.StatusOK, contentType, body)
}

// renderTXT returns the summary and history as plain text.
func renderTXT(state *models.SessionState) []byte {
	var sb strings.Builder

	if doc := state.Document; doc != nil {
		fmt.Fprintf(&sb, "Document: %s\n\n", doc.Name)
	}
	if sum := state.Summary; sum != nil {
		fmt.Fprintf(&sb, "SUMMARY (%s)\n\n%s\n\n", sum.Status, sum.Text)
	}

	if len(state.History) > 0 {
		sb.WriteString("QUESTIONS & ANSWERS\n\n")
		for _, e := range state.History {
			fmt.Fprintf(&sb, "Q%d: %s\nA%d: %s\n\n", e.Position, e.Question, e.Position, e.Answer)
		}
	}

	return []byte(strings.TrimRight(sb.String(), "\n") + "\n")
}

// renderMarkdown returns the export as Markdown with a metadata header.
func renderMarkdown(state *models.SessionState) []byte {
	var sb strings.Builder

	if doc := state.Document; doc != nil {
		fmt.Fprintf(&sb, "# %s\n\n", doc.Name)
		sb.WriteString("| Field | Value |\n")
		sb.WriteString("|-------|-------|\n")
		fmt.Fprintf(&sb, "| Type | %s |\n", doc.Kind)
		fmt.Fprintf(&sb, "| Words | %d |\n", doc.WordCount)
		if doc.PageCount > 0 {
			fmt.Fprintf(&sb, "| Pages | %d |\n", doc.PageCount)
		}
		fmt.Fprintf(&sb, "| Uploaded | %s |\n", doc.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		sb.WriteString("\n---\n\n")
	} else {
		sb.WriteString("# Learn Smart session\n\n")
	}

	if sum := state.Summary; sum != nil {
		sb.WriteString("## Summary\n\n")
		if sum.Status != models.StatusOK {
			fmt.Fprintf(&sb, "> Status: %s\n\n", sum.Status)
		}
		sb.WriteString(sum.Text)
		sb.WriteString("\n\n")
	}

	if len(state.History) > 0 {
		sb.WriteString("## Questions & Answers\n\n")
		for _, e := range state.History {
			fmt.Fprintf(&sb, "### %d. %s\n\n%s\n\n", e.Position, e.Question, e.Answer)
		}
	}

	return []byte(strings.TrimRight(sb.String(), "\n") + "\n")
}

// renderJSON returns the full session data as JSON.
func renderJSON(state *models.SessionState, exportedAt time.Time) ([]byte, error) {
	// Build a clean export structure (we control what's included)
	exportData := map[string]interface{}{
		"session_id":  state.Session.ID,
		"summary":     state.Summary,
		"history":     state.History,
		"exported_at": exportedAt,
	}
	if doc := state.Document; doc != nil {
		exportData["document"] = map[string]interface{}{
			"id":                doc.ID,
			"name":              doc.Name,
			"kind":              doc.Kind,
			"size_bytes":        doc.SizeBytes,
			"page_count":        doc.PageCount,
			"word_count":        doc.WordCount,
			"reading_time":      fmt.Sprintf("%d min", int(math.Ceil(float64(doc.WordCount)/200.0))),
			"extraction_status": doc.ExtractionStatus,
			"uploaded_at":       doc.CreatedAt,
		}
	}
	if state.History == nil {
		exportData["history"] = []models.QAExchange{}
	}

	return json.MarshalIndent(exportData, "", "  ")
}

// --- Helper Functions ---

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple — replace unsafe characters with hyphens
// and trim the result. We don't need a full filesystem-safe sanitizer
// since this is just for the Content-Disposition header.
func sanitizeFilename(name string) string {
	// Replace common unsafe characters
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	// Collapse multiple hyphens/spaces
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	// Limit length
	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
