// Package summary turns extracted document text into a readable summary.
//
// Two modes are supported:
//   - remote: one prompt to Gemini's generateContent endpoint
//   - local:  a local seq2seq model, run chunk by chunk
//
// Summarization degrades instead of failing. When the model call fails the
// caller gets a preview of the document marked StatusDegraded. The only
// error returned is a local model that cannot be initialized.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/learnsmart-api/internal/config"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/cache"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/genai"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/textutil"
)

// Fixed messages and limits.
const (
	MinTextLength   = 10
	EmptyMessage    = "The document appears to be empty or contains very little text content."
	PlaceholderNote = "The document text could not be extracted, so no summary was generated."
	PreviewLength   = 500
	DefaultMaxInput = 30000

	previewNote = "Note: AI summarization temporarily unavailable. This is a preview of your document content."
)

// Local model chunking parameters.
const (
	chunkSize         = 1000
	chunkMinLength    = 30
	chunkMaxLength    = 130
	secondPassOver    = 1000
	secondPassMaxLen  = 200
	chunkConcurrency  = 4
	remoteMaxTokens   = 1000
	remoteTemperature = 0.7
	remoteTopP        = 0.8
	remoteTopK        = 40
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
	Mode     string // config.AIModeRemote or config.AIModeLocal
	Remote   Generator
	Local    ModelLoader
	Cache    cache.Store // optional
	CacheTTL time.Duration
	MaxInput int // characters of text sent to the model; 0 means DefaultMaxInput
	Log      *logger.Logger
}

// Service summarizes text.
type Service struct {
	opts Options
	log  *logger.Logger
}

// Result is the outcome of one summarization.
type Result struct {
	Text   string
	Status models.ResultStatus
	Mode   string
	Cached bool
}

// New creates a summary service.
func New(opts Options) *Service {
	if opts.MaxInput <= 0 {
		opts.MaxInput = DefaultMaxInput
	}
	if opts.Mode == "" {
		opts.Mode = config.AIModeRemote
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{opts: opts, log: log.With("service", "summary", "mode", opts.Mode)}
}

// Mode returns the configured AI mode.
func (s *Service) Mode() string {
	return s.opts.Mode
}

// Summarize produces a summary of text. The returned error is non-nil only
// when the local model cannot be initialized.
func (s *Service) Summarize(ctx context.Context, text string) (*Result, error) {
	clean := textutil.Normalize(text)

	if textutil.Len(clean) < MinTextLength {
		return s.result(EmptyMessage, models.StatusFailed), nil
	}
	if extract.IsPlaceholder(clean) {
		s.log.Warn("⚠️  Refusing to summarize an extraction placeholder")
		return s.result(PlaceholderNote, models.StatusFailed), nil
	}

	key := cacheKey(s.opts.Mode, clean)
	if cached, ok := s.fromCache(ctx, key); ok {
		s.log.Debug("Summary cache hit", "key", key[:12])
		res := s.result(cached, models.StatusOK)
		res.Cached = true
		return res, nil
	}

	start := time.Now()
	var (
		summary string
		err     error
	)
	switch s.opts.Mode {
	case config.AIModeLocal:
		model, loadErr := s.opts.Local.Load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		summary, err = s.summarizeLocal(ctx, model, clean)
	default:
		summary, err = s.summarizeRemote(ctx, clean)
	}

	if err != nil {
		s.log.Warn("⚠️  Summarization failed, returning preview", "error", err, "duration", time.Since(start))
		return s.result(Preview(clean), models.StatusDegraded), nil
	}

	s.log.Info("📝 Summary generated", "chars_in", textutil.Len(clean), "chars_out", textutil.Len(summary), "duration", time.Since(start))
	s.toCache(ctx, key, summary)
	return s.result(summary, models.StatusOK), nil
}

// Preview is the degraded result: the first PreviewLength characters of
// the text and a note that summarization is unavailable.
func Preview(clean string) string {
	return fmt.Sprintf("Document Preview: %s...\n\n%s", textutil.Truncate(clean, PreviewLength), previewNote)
}

func (s *Service) result(text string, status models.ResultStatus) *Result {
	return &Result{Text: text, Status: status, Mode: s.opts.Mode}
}

// --- Remote (Gemini) ---

func (s *Service) summarizeRemote(ctx context.Context, clean string) (string, error) {
	if s.opts.Remote == nil {
		return "", genai.ErrNoAPIKey
	}
	text, err := s.opts.Remote.Generate(ctx, buildPrompt(clean, s.opts.MaxInput), genai.GenerationConfig{
		Temperature:     remoteTemperature,
		TopP:            remoteTopP,
		TopK:            remoteTopK,
		MaxOutputTokens: remoteMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// buildPrompt embeds the document text, truncated to maxInput characters.
func buildPrompt(clean string, maxInput int) string {
	body := clean
	if textutil.Len(body) > maxInput {
		body = textutil.Truncate(body, maxInput) + "\n\n[Document truncated due to length...]"
	}

	return fmt.Sprintf(`Please provide a comprehensive summary of the following document. Focus on key points, main ideas, and important details:

%s

Please format the summary in a clear, readable way with bullet points or paragraphs as appropriate.`, body)
}

// --- Local model ---

// summarizeLocal summarizes each chunk concurrently and joins the pieces in
// chunk order. A joined result that is still long gets a second pass.
func (s *Service) summarizeLocal(ctx context.Context, model *localmodel.Model, clean string) (string, error) {
	chunks := ChunkText(textutil.Truncate(clean, s.opts.MaxInput), chunkSize)
	parts := make([]string, len(chunks))

	// Go Pattern: errgroup runs goroutines and returns the first error.
	// Each goroutine writes only its own slice index, so no lock is needed.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			out, err := model.Summarize(gctx, chunk, chunkMinLength, chunkMaxLength)
			if err != nil {
				return fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
			}
			parts[i] = strings.TrimSpace(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	joined := strings.Join(parts, " ")
	if textutil.Len(joined) <= secondPassOver {
		return joined, nil
	}

	s.log.Debug("Running second summarization pass", "chunks", len(chunks), "chars", textutil.Len(joined))
	second, err := model.Summarize(ctx, joined, chunkMinLength, secondPassMaxLen)
	if err != nil {
		// The chunk summaries are still a real summary.
		s.log.Warn("Second pass failed, keeping chunk summaries", "error", err)
		return joined, nil
	}
	return strings.TrimSpace(second), nil
}

// --- Cache ---

func cacheKey(mode, clean string) string {
	sum := sha256.Sum256([]byte(mode + "\x00" + clean))
	return hex.EncodeToString(sum[:])
}

func (s *Service) fromCache(ctx context.Context, key string) (string, bool) {
	if s.opts.Cache == nil {
		return "", false
	}
	val, ok, err := s.opts.Cache.Get(ctx, "summary:"+key)
	if err != nil {
		s.log.Warn("Summary cache read failed", "error", err)
		return "", false
	}
	return val, ok
}

func (s *Service) toCache(ctx context.Context, key, summary string) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Set(ctx, "summary:"+key, summary, s.opts.CacheTTL); err != nil {
		s.log.Warn("Summary cache write failed", "error", err)
	}
}
