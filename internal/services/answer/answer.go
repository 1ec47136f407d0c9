// Package answer responds to user questions, grounded in the active
// document's text when there is enough of it.
//
// Like summarization, answering never fails the calling flow. A failed
// model call becomes ErrorMessage with StatusFailed. Only a local model
// that cannot be initialized is returned as an error.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shimizu-Technology/learnsmart-api/internal/config"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/genai"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/textutil"
)

// User-facing messages.
const (
	ErrorMessage      = "Sorry, I encountered an error while processing your question. Please try again."
	NoDocumentMessage = "I don't have any document context to answer your question. Please upload a document first."
	NotFoundMessage   = "I couldn't find a relevant answer to your question in the document."
)

const (
	// DefaultContextLimit caps the context embedded in a prompt.
	DefaultContextLimit = 2000
	// MinContextLength is the length a context must exceed to be used.
	MinContextLength = 10
	// ScoreThreshold is the minimum extractive QA confidence accepted.
	ScoreThreshold = 0.1

	excerptLength   = 300
	remoteMaxTokens = 800
)

// Generator produces text for a prompt. *genai.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg genai.GenerationConfig) (string, error)
}

// ModelLoader lazily initializes the local model. *localmodel.Loader implements it.
type ModelLoader interface {
	Load(ctx context.Context) (*localmodel.Model, error)
}

// Options configures a Service.
type Options struct {
	Mode         string
	Remote       Generator
	Local        ModelLoader
	ContextLimit int // 0 means DefaultContextLimit
	Log          *logger.Logger
}

// Service answers questions.
type Service struct {
	opts Options
	log  *logger.Logger
}

// Result is the outcome of one answer. Score is set only by the local
// extractive model.
type Result struct {
	Text   string
	Status models.ResultStatus
	Source string // models.SourceDocument or models.SourceGeneral
	Score  *float64
}

// New creates an answer service.
func New(opts Options) *Service {
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = DefaultContextLimit
	}
	if opts.Mode == "" {
		opts.Mode = config.AIModeRemote
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{opts: opts, log: log.With("service", "answer", "mode", opts.Mode)}
}

// Answer responds to question. An empty context (or one that is too short,
// or an extraction placeholder) takes the general-knowledge path.
func (s *Service) Answer(ctx context.Context, question, docContext string) (*Result, error) {
	question = strings.TrimSpace(question)
	passage := s.usableContext(docContext)

	source := models.SourceGeneral
	if passage != "" {
		source = models.SourceDocument
	}
	log := s.log.With("source", source, "context_chars", textutil.Len(passage))

	if s.opts.Mode == config.AIModeLocal {
		model, err := s.opts.Local.Load(ctx)
		if err != nil {
			return nil, err
		}
		return s.answerLocal(ctx, log, model, question, passage), nil
	}
	return s.answerRemote(ctx, log, question, passage, source), nil
}

// usableContext returns the trimmed, capped context, or "" when it should
// not be used.
func (s *Service) usableContext(docContext string) string {
	trimmed := strings.TrimSpace(docContext)
	if textutil.Len(trimmed) <= MinContextLength || extract.IsPlaceholder(trimmed) {
		return ""
	}
	return textutil.Truncate(trimmed, s.opts.ContextLimit)
}

func (s *Service) answerRemote(ctx context.Context, log *logger.Logger, question, passage, source string) *Result {
	if s.opts.Remote == nil {
		log.Warn("⚠️  No remote model configured")
		return &Result{Text: ErrorMessage, Status: models.StatusFailed, Source: source}
	}

	prompt := generalPrompt(question)
	if passage != "" {
		prompt = documentPrompt(question, passage)
	}

	text, err := s.opts.Remote.Generate(ctx, prompt, genai.GenerationConfig{
		Temperature:     0.7,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: remoteMaxTokens,
	})
	if err != nil {
		log.Warn("⚠️  Answer generation failed", "error", err)
		return &Result{Text: ErrorMessage, Status: models.StatusFailed, Source: source}
	}

	log.Info("💬 Question answered")
	return &Result{Text: strings.TrimSpace(text), Status: models.StatusOK, Source: source}
}

func documentPrompt(question, passage string) string {
	return fmt.Sprintf(`You are a helpful study assistant. Answer the question below.

Use the document content as your primary source. If the document does not contain the information needed, answer from your general knowledge instead.
Start your answer with "Based on the document:" or "Based on general knowledge:" so the reader knows where the answer came from.

Question: "%s"

Document content:
%s`, question, passage)
}

func generalPrompt(question string) string {
	return fmt.Sprintf(`Please answer this question: "%s"

No document is currently uploaded, so provide a general helpful response from your own knowledge.`, question)
}

func (s *Service) answerLocal(ctx context.Context, log *logger.Logger, model *localmodel.Model, question, passage string) *Result {
	// Extractive QA needs a passage to extract from.
	if passage == "" {
		return &Result{Text: NoDocumentMessage, Status: models.StatusDegraded, Source: models.SourceGeneral}
	}

	ans, err := model.Answer(ctx, question, passage)
	if err != nil {
		log.Warn("⚠️  Local answer failed", "error", err)
		return &Result{Text: ErrorMessage, Status: models.StatusFailed, Source: models.SourceDocument}
	}

	score := ans.Score
	if score < ScoreThreshold || strings.TrimSpace(ans.Text) == "" {
		log.Info("Low-confidence answer", "score", score)
		excerpt := textutil.Truncate(passage, excerptLength)
		return &Result{
			Text:   fmt.Sprintf("%s Here is the most relevant part of the document I found:\n\n\"%s...\"", NotFoundMessage, excerpt),
			Status: models.StatusDegraded,
			Source: models.SourceDocument,
			Score:  &score,
		}
	}

	log.Info("💬 Question answered", "score", score)
	return &Result{Text: strings.TrimSpace(ans.Text), Status: models.StatusOK, Source: models.SourceDocument, Score: &score}
}
