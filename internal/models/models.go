// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// No ORM magic — the database package handles persistence. The `db` tags
// work with sqlx for column mapping.
package models

import "time"

// ResultStatus tells callers whether a result is the real thing, a
// fallback, or a failure message. Callers branch on it instead of
// inspecting the text.
type ResultStatus string

const (
	StatusOK       ResultStatus = "ok"
	StatusDegraded ResultStatus = "degraded"
	StatusFailed   ResultStatus = "failed"

	// StatusPending is only used by summaries waiting for a worker.
	StatusPending ResultStatus = "pending"
)

// Settled reports whether the status is final.
func (s ResultStatus) Settled() bool {
	return s != StatusPending && s != ""
}

// Session is one browser page: it holds at most one active document
// and the Q&A history.
type Session struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Document is an uploaded file and its extracted text. ExtractedText is
// never empty-by-absence: when extraction fails it holds a placeholder and
// ExtractionStatus is "failed".
type Document struct {
	ID               string       `json:"id" db:"id"`
	SessionID        string       `json:"session_id" db:"session_id"`
	Name             string       `json:"name" db:"name"`
	MimeType         string       `json:"mime_type" db:"mime_type"`
	Kind             string       `json:"kind" db:"kind"`
	SizeBytes        int64        `json:"size_bytes" db:"size_bytes"`
	RawBytes         []byte       `json:"-" db:"raw_bytes"` // "-" means never serialize to JSON
	ExtractedText    string       `json:"extracted_text" db:"extracted_text"`
	ExtractionStatus ResultStatus `json:"extraction_status" db:"extraction_status"`
	Strategy         string       `json:"strategy" db:"strategy"`
	PageCount        int          `json:"page_count" db:"page_count"`
	WordCount        int          `json:"word_count" db:"word_count"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}

// SummaryResult is the summary derived from a document's extracted text.
type SummaryResult struct {
	DocumentID         string       `json:"document_id" db:"document_id"`
	SessionID          string       `json:"session_id" db:"session_id"`
	Status             ResultStatus `json:"status" db:"status"`
	Text               string       `json:"text" db:"text"`
	SourceDocumentName string       `json:"source_document_name" db:"source_document_name"`
	Mode               string       `json:"mode" db:"mode"` // "remote" or "local"
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}

// Answer sources.
const (
	SourceDocument = "document"
	SourceGeneral  = "general"
)

// QAExchange is one question and its answer. Position is the 1-based
// insertion order within the session.
type QAExchange struct {
	ID        string       `json:"id" db:"id"`
	SessionID string       `json:"session_id" db:"session_id"`
	Position  int          `json:"position" db:"position"`
	Question  string       `json:"question" db:"question"`
	Answer    string       `json:"answer" db:"answer"`
	Status    ResultStatus `json:"status" db:"status"`
	Source    string       `json:"source" db:"source"` // "document" or "general"
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs ---
// Go Pattern: Separate structs for API input/output vs database models.

// CreateSessionResponse includes the bearer token for all /session routes.
type CreateSessionResponse struct {
	Session Session `json:"session"`
	Token   string  `json:"token"`
}

// SessionState is everything the page needs to render.
type SessionState struct {
	Session  Session        `json:"session"`
	Document *Document      `json:"document"`
	Summary  *SummaryResult `json:"summary"`
	History  []QAExchange   `json:"history"`
}

// DocumentState is returned after an upload.
type DocumentState struct {
	Document Document      `json:"document"`
	Summary  SummaryResult `json:"summary"`
}

// AskQuestionRequest is the JSON body for POST /api/v1/session/questions.
type AskQuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// SummarizeRequest is the JSON body for POST /api/v1/summarize.
type SummarizeRequest struct {
	Text string `json:"text"`
}

// AnswerRequest is the JSON body for POST /api/v1/answer.
// Context is optional; an empty context takes the general-knowledge path.
type AnswerRequest struct {
	Question string `json:"question" binding:"required"`
	Context  string `json:"context,omitempty"`
}

// ExtractionResponse is returned by POST /api/v1/extract.
type ExtractionResponse struct {
	Name      string       `json:"name"`
	Kind      string       `json:"kind"`
	Strategy  string       `json:"strategy,omitempty"`
	Status    ResultStatus `json:"status"`
	Text      string       `json:"text"`
	PageCount int          `json:"page_count"`
	WordCount int          `json:"word_count"`
}

// SummaryResponse is returned by POST /api/v1/summarize.
type SummaryResponse struct {
	Status ResultStatus `json:"status"`
	Text   string       `json:"text"`
	Mode   string       `json:"mode"`
	Cached bool         `json:"cached"`
}

// AnswerResponse is returned by POST /api/v1/answer.
type AnswerResponse struct {
	Status ResultStatus `json:"status"`
	Text   string       `json:"text"`
	Source string       `json:"source"`
	Score  *float64     `json:"score,omitempty"` // Local extractive QA only
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Database    string `json:"database"`
	Workers     int    `json:"workers"`
	QueueSize   int    `json:"queue_size"`
	AIMode      string `json:"ai_mode"`
	PDFStrategy string `json:"pdf_strategy"`
}
