// Go Pattern: Table-driven tests are the standard Go testing pattern.
// You define a slice of test cases (each with a name, inputs, and expected
// outputs), then loop through them. This makes it easy to add new cases
// and keeps the test logic DRY.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/session"
)

func exportState() *models.SessionState {
	uploaded := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return &models.SessionState{
		Session: models.Session{ID: "sess-1"},
		Document: &models.Document{
			ID: "doc-1", Name: "biology notes.pdf", Kind: "pdf",
			PageCount: 3, WordCount: 450, ExtractionStatus: models.StatusOK, CreatedAt: uploaded,
		},
		Summary: &models.SummaryResult{Status: models.StatusOK, Text: "Cells make energy."},
		History: []models.QAExchange{
			{Position: 1, Question: "What are cells?", Answer: "Units of life."},
			{Position: 2, Question: "What do mitochondria do?", Answer: "Produce energy."},
		},
	}
}

func TestRenderTXT(t *testing.T) {
	want := `Document: biology notes.pdf

SUMMARY (ok)

Cells make energy.

QUESTIONS & ANSWERS

Q1: What are cells?
A1: Units of life.

Q2: What do mitochondria do?
A2: Produce energy.
`
	if got := string(renderTXT(exportState())); got != want {
		t.Errorf("renderTXT =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	state := exportState()
	state.Summary.Status = models.StatusDegraded

	got := string(renderMarkdown(state))
	for _, want := range []string{
		"# biology notes.pdf\n",
		"| Pages | 3 |",
		"| Uploaded | 2024-03-01 09:30:00 UTC |",
		"## Summary\n\n> Status: degraded\n\nCells make energy.",
		"### 2. What do mitochondria do?\n\nProduce energy.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown missing %q\n%s", want, got)
		}
	}

	t.Run("history only", func(t *testing.T) {
		got := string(renderMarkdown(&models.SessionState{History: state.History}))
		if !strings.HasPrefix(got, "# Learn Smart session\n") || strings.Contains(got, "## Summary") {
			t.Errorf("markdown =\n%s", got)
		}
	})
}

func TestRenderJSON(t *testing.T) {
	exportedAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	body, err := renderJSON(exportState(), exportedAt)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		SessionID string `json:"session_id"`
		Document  struct {
			Name        string `json:"name"`
			ReadingTime string `json:"reading_time"`
		} `json:"document"`
		Summary models.SummaryResult `json:"summary"`
		History []models.QAExchange  `json:"history"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "sess-1" || got.Document.Name != "biology notes.pdf" {
		t.Errorf("export = %+v", got)
	}
	// 450 words at 200 wpm rounds up to 3 minutes.
	if got.Document.ReadingTime != "3 min" {
		t.Errorf("reading_time = %q", got.Document.ReadingTime)
	}
	if len(got.History) != 2 || got.Summary.Text != "Cells make energy." {
		t.Errorf("export = %+v", got)
	}

	t.Run("no history is an empty list", func(t *testing.T) {
		body, _ := renderJSON(&models.SessionState{Session: models.Session{ID: "s"}}, exportedAt)
		if !strings.Contains(string(body), `"history": []`) {
			t.Errorf("json = %s", body)
		}
	})
}

// TestSanitizeFilename verifies filename sanitization.
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean filename", "Biology Notes", "Biology Notes"},
		{"slashes and colons", "Part 1/2: The Beginning", "Part 1-2- The Beginning"},
		{"special characters", "What is Go? <A Guide>", "What is Go- -A Guide-"},
		{"empty string", "", ""},
		{"long name gets truncated", strings.Repeat("a", 200), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		// Go Pattern: t.Run creates a sub-test with its own name.
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{session.ErrBusy, http.StatusConflict, "operation_in_progress"},
		{session.ErrNoDocument, http.StatusNotFound, "no_document"},
		{session.ErrEmptyQuestion, http.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("session abc: %w", database.ErrNotFound), http.StatusNotFound, "session_not_found"},
		{fmt.Errorf("%w: connection refused", localmodel.ErrUnavailable), http.StatusServiceUnavailable, "model_unavailable"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			code, resp := errorFor(tt.err)
			if code != tt.wantCode || resp.Code != tt.wantCode || resp.Error != tt.wantErr {
				t.Errorf("errorFor(%v) = %d %+v", tt.err, code, resp)
			}
		})
	}
}
