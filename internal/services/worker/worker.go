// Package worker provides a background job processing system using goroutines.
//
// Go Pattern: Goroutines and channels are Go's concurrency primitives.
// A goroutine is like a lightweight thread (thousands are fine), and
// channels are typed pipes for communication between goroutines.
//
// This worker pool pattern is very common in Go:
// 1. Create a buffered channel as a job queue
// 2. Spawn N worker goroutines that read from the channel
// 3. Send jobs to the channel from your HTTP handlers
// 4. Workers process jobs concurrently
//
// Uploads return as soon as the text is extracted; the summary is produced
// here and written back when it is ready.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/summary"
)

// JobType identifies what kind of work a job represents.
type JobType string

const (
	JobSummaryGeneration JobType = "summary_generation"
)

// ModelUnavailableMessage is stored as the summary when the local model
// could not be initialized.
const ModelUnavailableMessage = "The summarization model could not be loaded. Please try uploading the document again later."

// LoadFailedMessage is stored as the summary when the document could not
// be read back for summarization.
const LoadFailedMessage = "The summary could not be generated because the document could not be loaded. Please try uploading it again."

// ErrQueueFull is returned by Submit when the job queue has no room.
var ErrQueueFull = errors.New("job queue is full; try again later")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker pool is stopped")

// Job represents a unit of work to be processed by a worker.
type Job struct {
	ID        string          // The document ID
	Type      JobType
	Payload   json.RawMessage // Flexible payload — different job types need different data
	CreatedAt time.Time
}

// SummaryPayload is the data needed for a summary generation job.
type SummaryPayload struct {
	DocumentID string `json:"document_id"`
	SessionID  string `json:"session_id"`
}

// NewSummaryJob builds a summary_generation job for a document.
func NewSummaryJob(sessionID, documentID string) (Job, error) {
	payload, err := json.Marshal(SummaryPayload{DocumentID: documentID, SessionID: sessionID})
	if err != nil {
		return Job{}, err
	}
	return Job{ID: documentID, Type: JobSummaryGeneration, Payload: payload, CreatedAt: time.Now()}, nil
}

// Store is the persistence the pool needs. *database.DB implements it.
type Store interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ApplySummary(ctx context.Context, s *models.SummaryResult) (bool, error)
}

// Summarizer produces summaries. *summary.Service implements it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*summary.Result, error)
	Mode() string
}

// CompletionHook runs after every job, successful or not.
type CompletionHook func(job Job, err error)

// Pool manages a pool of worker goroutines.
type Pool struct {
	// Go Pattern: Channels are the backbone of Go concurrency.
	// This buffered channel acts as our job queue.
	// Buffered means it can hold `queueSize` jobs before blocking.
	jobs       chan Job
	workers    int
	store      Store
	summarizer Summarizer
	log        *logger.Logger

	onComplete CompletionHook

	// Go Pattern: sync.WaitGroup tracks running goroutines.
	// We call wg.Add(1) when starting a worker, wg.Done() when it finishes,
	// and wg.Wait() blocks until all workers are done (used for graceful shutdown).
	wg sync.WaitGroup

	// mu guards stopped so Submit never sends on the closed channel.
	mu      sync.RWMutex
	stopped bool

	// Go Pattern: context.Context with cancel for graceful shutdown.
	// When we call cancel(), all workers' contexts are cancelled.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool.
func NewPool(workers, queueSize int, store Store, sum Summarizer, log *logger.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:       make(chan Job, queueSize), // Buffered channel
		workers:    workers,
		store:      store,
		summarizer: sum,
		log:        log.With("component", "worker"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetCompletionHook registers fn to run after each job. Call it before Start.
func (p *Pool) SetCompletionHook(fn CompletionHook) {
	p.onComplete = fn
}

// Start launches the worker goroutines.
// Go Pattern: The `go` keyword starts a new goroutine (lightweight thread).
// Each worker runs in its own goroutine, reading from the shared jobs channel.
func (p *Pool) Start() {
	p.log.Info("🚀 Starting background workers", "count", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i) // Launch worker goroutine
	}
}

// Stop gracefully shuts down all workers. Jobs still queued are finished
// before Stop returns; the context is cancelled only afterwards.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs) // Close the channel (workers will drain remaining jobs)
	p.mu.Unlock()

	p.log.Info("⏹️  Stopping workers...")
	p.wg.Wait() // Wait for all workers to finish
	p.cancel()
	p.log.Info("✅ All workers stopped")
}

// Submit adds a job to the queue.
// Returns an error if the queue is full (non-blocking).
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	// Go Pattern: `select` with `default` makes channel operations non-blocking.
	// Without default, sending to a full channel would block the HTTP handler.
	select {
	case p.jobs <- job:
		p.log.Debug("📥 Job queued", "job", job.ID, "type", job.Type)
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// worker is the main loop for each worker goroutine.
// It reads jobs from the channel and processes them.
func (p *Pool) worker(id int) {
	defer p.wg.Done() // Signal completion when this worker exits

	log := p.log.With("worker", id)
	log.Debug("👷 Worker started")

	// Go Pattern: `range` over a channel reads values until the channel is closed.
	// This is the idiomatic way to consume from a channel.
	for job := range p.jobs {
		log.Info("👷 Processing job", "job", job.ID, "type", job.Type)
		start := time.Now()

		var err error
		switch job.Type {
		case JobSummaryGeneration:
			err = p.processSummary(job)
		default:
			err = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if err != nil {
			log.Error("❌ Job failed", "job", job.ID, "error", err)
		} else {
			log.Info("✅ Job completed", "job", job.ID, "duration", time.Since(start))
		}

		if p.onComplete != nil {
			p.onComplete(job, err)
		}
	}

	log.Debug("👷 Worker stopped")
}

// processSummary summarizes a document and stores the result if the
// document is still the session's active one.
func (p *Pool) processSummary(job Job) error {
	ctx := p.ctx

	var payload SummaryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid summary payload: %w", err)
	}

	doc, err := p.store.GetDocument(ctx, payload.DocumentID)
	if errors.Is(err, database.ErrNotFound) {
		// Replaced or removed before we got to it.
		p.log.Info("Skipping summary for inactive document", "document", payload.DocumentID)
		return nil
	}
	if err != nil {
		// Settle the row so the session is not left with a pending summary.
		_ = p.apply(ctx, &models.SummaryResult{
			DocumentID: payload.DocumentID,
			SessionID:  payload.SessionID,
			Status:     models.StatusFailed,
			Text:       LoadFailedMessage,
			Mode:       p.summarizer.Mode(),
		})
		return fmt.Errorf("failed to load document: %w", err)
	}

	s := &models.SummaryResult{DocumentID: doc.ID, SessionID: doc.SessionID, Mode: p.summarizer.Mode()}

	result, err := p.summarizer.Summarize(ctx, doc.ExtractedText)
	if err != nil {
		// Only model initialization fails hard; record it on the summary.
		s.Status = models.StatusFailed
		s.Text = ModelUnavailableMessage
	} else {
		s.Status = result.Status
		s.Text = result.Text
		s.Mode = result.Mode
	}

	if applyErr := p.apply(ctx, s); applyErr != nil {
		return applyErr
	}
	if err != nil {
		return fmt.Errorf("summary generation failed: %w", err)
	}
	return nil
}

// apply stores s unless its document is no longer the active one.
func (p *Pool) apply(ctx context.Context, s *models.SummaryResult) error {
	applied, err := p.store.ApplySummary(ctx, s)
	if err != nil {
		p.log.Error("❌ Failed to save summary", "document", s.DocumentID, "error", err)
		return fmt.Errorf("failed to save summary: %w", err)
	}
	if !applied {
		p.log.Info("🗑️  Discarded stale summary", "document", s.DocumentID)
	}
	return nil
}
