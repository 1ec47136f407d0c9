// Package localmodeltest provides a fake local inference server for tests.
package localmodeltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// Server is a fake inference server. With no flags set it is healthy,
// summarizes by keeping the first sentence and answers with the first
// word of the context.
type Server struct {
	*httptest.Server

	// Unhealthy makes /health return 503.
	Unhealthy atomic.Bool
	// FailSummarize makes /summarize return 500.
	FailSummarize atomic.Bool

	HealthCalls    atomic.Int32
	SummarizeCalls atomic.Int32

	mu        sync.Mutex
	summaries []SummarizeCall
	score     float64
}

// SummarizeCall records one /summarize request.
type SummarizeCall struct {
	Text      string `json:"text"`
	MinLength int    `json:"min_length"`
	MaxLength int    `json:"max_length"`
}

// New starts a fake server. Close it when done.
func New() *Server {
	s := &Server{score: 0.9}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/summarize", s.summarize)
	mux.HandleFunc("/answer", s.answer)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetScore sets the confidence returned by /answer.
func (s *Server) SetScore(score float64) {
	s.mu.Lock()
	s.score = score
	s.mu.Unlock()
}

// Summaries returns the recorded /summarize calls.
func (s *Server) Summaries() []SummarizeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SummarizeCall(nil), s.summaries...)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.HealthCalls.Add(1)
	if s.Unhealthy.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	s.SummarizeCalls.Add(1)
	var req SummarizeCall
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.summaries = append(s.summaries, req)
	s.mu.Unlock()

	if s.FailSummarize.Load() {
		http.Error(w, `{"error":"model crashed"}`, http.StatusInternalServerError)
		return
	}

	summary := req.Text
	if i := strings.Index(summary, ". "); i >= 0 {
		summary = summary[:i+1]
	}
	writeJSON(w, map[string]string{"summary_text": summary})
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	score := s.score
	s.mu.Unlock()
	answer := ""
	if fields := strings.Fields(req.Context); len(fields) > 0 {
		answer = fields[0]
	}
	writeJSON(w, map[string]interface{}{"answer": answer, "score": score})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
