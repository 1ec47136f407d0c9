// Package localmodel talks to a local inference server that hosts a
// seq2seq summarization model and an extractive question-answering model.
//
// The server is expected to expose:
//
//	GET  /health     -> 200 when both models are loaded
//	POST /summarize  {text, min_length, max_length} -> {summary_text}
//	POST /answer     {question, context}            -> {answer, score}
//
// Initialization is lazy. The first successful Load is cached for the life
// of the process; a failed one is retried on the next call.
package localmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
)

// ErrUnavailable means no inference endpoint could be initialized.
var ErrUnavailable = errors.New("local model unavailable")

// Loader lazily initializes the model and caches it.
type Loader struct {
	primary    string
	fallback   string
	httpClient *http.Client
	log        *logger.Logger

	// Go Pattern: A mutex guards the cached model so concurrent first
	// callers wait for one initialization instead of racing.
	mu    sync.Mutex
	model *Model
}

// NewLoader creates a loader. fallback may be empty; when set it is tried
// if the primary endpoint does not come up (e.g. a CPU-only instance).
func NewLoader(primary, fallback string, timeout time.Duration, log *logger.Logger) *Loader {
	return &Loader{
		primary:    strings.TrimRight(primary, "/"),
		fallback:   strings.TrimRight(fallback, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Load returns the initialized model, initializing it on first use.
// A failure is not cached, so a later call tries again.
func (l *Loader) Load(ctx context.Context) (*Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.model != nil {
		return l.model, nil
	}

	endpoints := []string{l.primary}
	if l.fallback != "" && l.fallback != l.primary {
		endpoints = append(endpoints, l.fallback)
	}

	var errs []error
	for i, ep := range endpoints {
		if err := l.probe(ctx, ep); err != nil {
			l.log.Warn("⚠️  Local model endpoint not ready", "endpoint", ep, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ep, err))
			continue
		}
		if i > 0 {
			l.log.Info("🔁 Using fallback local model endpoint", "endpoint", ep)
		} else {
			l.log.Info("🧠 Local model ready", "endpoint", ep)
		}
		l.model = &Model{baseURL: ep, httpClient: l.httpClient}
		return l.model, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func (l *Loader) probe(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Model is an initialized inference endpoint.
type Model struct {
	baseURL    string
	httpClient *http.Client
}

// Endpoint returns the base URL the model was loaded from.
func (m *Model) Endpoint() string {
	return m.baseURL
}

// Answer is an extractive QA result. Score is the model's confidence in [0, 1].
type Answer struct {
	Text  string
	Score float64
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MinLength int    `json:"min_length"`
	MaxLength int    `json:"max_length"`
}

type summarizeResponse struct {
	SummaryText string `json:"summary_text"`
	Error       string `json:"error"`
}

type answerRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type answerResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Error  string  `json:"error"`
}

// Summarize produces an abstractive summary bounded by minLen and maxLen tokens.
func (m *Model) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	var out summarizeResponse
	if err := m.post(ctx, "/summarize", summarizeRequest{Text: text, MinLength: minLen, MaxLength: maxLen}, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("summarize: %s", out.Error)
	}
	if strings.TrimSpace(out.SummaryText) == "" {
		return "", errors.New("summarize: empty summary")
	}
	return out.SummaryText, nil
}

// Answer extracts an answer span for question from passage.
func (m *Model) Answer(ctx context.Context, question, passage string) (Answer, error) {
	var out answerResponse
	if err := m.post(ctx, "/answer", answerRequest{Question: question, Context: passage}, &out); err != nil {
		return Answer{}, err
	}
	if out.Error != "" {
		return Answer{}, fmt.Errorf("answer: %s", out.Error)
	}
	return Answer{Text: out.Answer, Score: out.Score}, nil
}

func (m *Model) post(ctx context.Context, path string, payload, dst interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("local model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("local model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
