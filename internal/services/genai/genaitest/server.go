// Package genaitest provides a fake Gemini generateContent server for tests.
package genaitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

// Request is one recorded generateContent call.
type Request struct {
	Model           string
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
}

// Server answers every generateContent call with Reply, or with a 500
// while Fail is set.
type Server struct {
	*httptest.Server

	Fail atomic.Bool

	mu       sync.Mutex
	reply    string
	requests []Request
}

// New starts a fake server that replies with reply.
func New(reply string) *Server {
	s := &Server{reply: reply}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// SetReply changes the candidate text.
func (s *Server) SetReply(reply string) {
	s.mu.Lock()
	s.reply = reply
	s.mu.Unlock()
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns the number of calls received so far.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			Temperature     float64 `json:"temperature"`
			MaxOutputTokens int     `json:"maxOutputTokens"`
		} `json:"generationConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Contents) == 0 || len(body.Contents[0].Parts) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
		return
	}

	model := strings.TrimPrefix(r.URL.Path, "/models/")
	model = strings.TrimSuffix(model, ":generateContent")

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Model:           model,
		Prompt:          body.Contents[0].Parts[0].Text,
		MaxOutputTokens: body.GenerationConfig.MaxOutputTokens,
		Temperature:     body.GenerationConfig.Temperature,
	})
	reply := s.reply
	s.mu.Unlock()

	if s.Fail.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]string{"text": reply}},
				},
			},
		},
	})
}
