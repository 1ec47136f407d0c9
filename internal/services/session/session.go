// Package session drives one page's flow: upload a document, extract its
// text, summarize it in the background, and answer questions against it.
//
// A session holds at most one active document. Each kind of action has its
// own "in progress" flag: a second upload is refused while one is still
// being extracted or summarized, and a second question is refused while
// one is being answered. Uploads and questions do not block each other.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/answer"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/worker"
)

var (
	// ErrBusy means the same kind of action is already running for the session.
	ErrBusy = errors.New("operation already in progress")
	// ErrNoDocument means the session has no active document.
	ErrNoDocument = errors.New("no document uploaded")
	// ErrEmptyQuestion means the question was blank.
	ErrEmptyQuestion = errors.New("question is empty")
)

// QueueFullMessage is stored as the summary when no worker could take the job.
const QueueFullMessage = "The summarizer is busy right now. Please upload the document again in a moment."

// Store is the persistence the service needs. *database.DB implements it.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ReplaceDocument(ctx context.Context, doc *models.Document, summary *models.SummaryResult) error
	RemoveDocument(ctx context.Context, sessionID string) (bool, error)
	GetActiveDocument(ctx context.Context, sessionID string) (*models.Document, error)
	GetSummary(ctx context.Context, sessionID string) (*models.SummaryResult, error)
	ApplySummary(ctx context.Context, s *models.SummaryResult) (bool, error)
	AppendExchange(ctx context.Context, e *models.QAExchange) error
	ListExchanges(ctx context.Context, sessionID string) ([]models.QAExchange, error)
}

// Extractor turns an upload into text. *extract.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, u extract.Upload) *extract.Result
}

// Answerer answers questions. *answer.Service implements it.
type Answerer interface {
	Answer(ctx context.Context, question, docContext string) (*answer.Result, error)
}

// Queue accepts background jobs. *worker.Pool implements it.
type Queue interface {
	Submit(job worker.Job) error
}

// Service is the page controller. Construct it with New and register
// JobCompleted as the worker pool's completion hook.
type Service struct {
	store     Store
	extractor Extractor
	answerer  Answerer
	queue     Queue
	mode      string
	log       *logger.Logger

	// Go Pattern: A mutex protects maps shared between HTTP handlers and
	// worker goroutines.
	mu        sync.Mutex
	uploads   map[string]string // session ID -> document ID being summarized ("" while extracting)
	questions map[string]bool
}

// New creates a session service. mode is recorded on pending summaries.
func New(store Store, ext Extractor, ans Answerer, queue Queue, mode string, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		extractor: ext,
		answerer:  ans,
		queue:     queue,
		mode:      mode,
		log:       log.With("service", "session"),
		uploads:   make(map[string]string),
		questions: make(map[string]bool),
	}
}

// Create starts a new session.
func (s *Service) Create(ctx context.Context) (*models.Session, error) {
	sess := &models.Session{}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("🆕 Session created", "session", sess.ID)
	return sess, nil
}

// Upload extracts the file's text, makes it the active document and
// queues its summary. The returned summary is pending unless extraction
// failed, in which case it is already failed and carries the placeholder.
func (s *Service) Upload(ctx context.Context, sessionID string, u extract.Upload) (*models.DocumentState, error) {
	if !s.acquireUpload(sessionID) {
		return nil, ErrBusy
	}
	// Released on return unless a summary job takes ownership of the flag.
	handedOff, heldDoc := false, ""
	defer func() {
		if !handedOff {
			s.releaseUpload(sessionID, heldDoc)
		}
	}()

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	res := s.extractor.Extract(ctx, u)

	doc := &models.Document{
		SessionID:        sessionID,
		Name:             u.Name,
		MimeType:         u.MimeType,
		Kind:             string(res.Kind),
		SizeBytes:        int64(len(u.Data)),
		RawBytes:         u.Data,
		ExtractedText:    res.Text,
		ExtractionStatus: res.Status,
		Strategy:         res.Strategy,
		PageCount:        res.PageCount,
		WordCount:        res.WordCount,
	}
	sum := &models.SummaryResult{Status: models.StatusPending, Mode: s.mode}
	if res.Status != models.StatusOK {
		// Placeholders are never summarized.
		sum.Status = models.StatusFailed
		sum.Text = res.Text
	}

	if err := s.store.ReplaceDocument(ctx, doc, sum); err != nil {
		return nil, err
	}
	log := s.log.With("session", sessionID, "document", doc.ID)
	log.Info("📄 Document uploaded", "name", doc.Name, "kind", doc.Kind, "status", doc.ExtractionStatus)

	if sum.Status == models.StatusPending {
		job, err := worker.NewSummaryJob(sessionID, doc.ID)
		if err == nil {
			heldDoc = doc.ID
			s.setUploadDocument(sessionID, doc.ID)
			err = s.queue.Submit(job)
		}
		if err != nil {
			log.Warn("⚠️  Could not queue summary", "error", err)
			sum.Status = models.StatusFailed
			sum.Text = QueueFullMessage
			if _, applyErr := s.store.ApplySummary(ctx, sum); applyErr != nil {
				return nil, applyErr
			}
		} else {
			handedOff = true
		}
	}

	doc.RawBytes = nil
	return &models.DocumentState{Document: *doc, Summary: *sum}, nil
}

// JobCompleted releases the upload flag held by a finished summary job.
// It matches worker.CompletionHook.
func (s *Service) JobCompleted(job worker.Job, err error) {
	if job.Type != worker.JobSummaryGeneration {
		return
	}
	var payload worker.SummaryPayload
	if jerr := json.Unmarshal(job.Payload, &payload); jerr != nil {
		return
	}
	s.releaseUpload(payload.SessionID, payload.DocumentID)
	if err != nil {
		s.log.Warn("Summary job settled with error", "session", payload.SessionID, "document", payload.DocumentID, "error", err)
	}
}

// RemoveDocument discards the active document and its summary and clears
// the Q&A history.
func (s *Service) RemoveDocument(ctx context.Context, sessionID string) error {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return err
	}
	removed, err := s.store.RemoveDocument(ctx, sessionID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNoDocument
	}
	s.log.Info("🗑️  Document removed, history cleared", "session", sessionID)
	return nil
}

// Ask answers question, using the active document as context when its
// text was extracted, and appends the exchange to the history.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (*models.QAExchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.acquireQuestion(sessionID) {
		return nil, ErrBusy
	}
	defer s.releaseQuestion(sessionID)

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	docContext := ""
	doc, err := s.store.GetActiveDocument(ctx, sessionID)
	switch {
	case err == nil:
		if doc.ExtractionStatus == models.StatusOK {
			docContext = doc.ExtractedText
		}
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	res, err := s.answerer.Answer(ctx, question, docContext)
	if err != nil {
		return nil, err
	}

	e := &models.QAExchange{
		SessionID: sessionID,
		Question:  question,
		Answer:    res.Text,
		Status:    res.Status,
		Source:    res.Source,
	}
	if err := s.store.AppendExchange(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// State returns everything the page renders.
func (s *Service) State(ctx context.Context, sessionID string) (*models.SessionState, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := &models.SessionState{Session: *sess}

	doc, err := s.store.GetActiveDocument(ctx, sessionID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		state.Document = doc
		sum, err := s.store.GetSummary(ctx, sessionID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		state.Summary = sum
	}

	state.History, err = s.store.ListExchanges(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Summary returns the active document's summary.
func (s *Service) Summary(ctx context.Context, sessionID string) (*models.SummaryResult, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	sum, err := s.store.GetSummary(ctx, sessionID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoDocument
	}
	return sum, err
}

// History returns the session's Q&A history in order.
func (s *Service) History(ctx context.Context, sessionID string) ([]models.QAExchange, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListExchanges(ctx, sessionID)
}

// Busy reports the in-progress flags for a session.
func (s *Service) Busy(sessionID string) (uploading, asking bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, uploading = s.uploads[sessionID]
	return uploading, s.questions[sessionID]
}

// --- in-progress flags ---

func (s *Service) acquireUpload(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.uploads[sessionID]; held {
		return false
	}
	s.uploads[sessionID] = ""
	return true
}

func (s *Service) setUploadDocument(sessionID, documentID string) {
	s.mu.Lock()
	s.uploads[sessionID] = documentID
	s.mu.Unlock()
}

// releaseUpload clears the flag if it still belongs to documentID.
func (s *Service) releaseUpload(sessionID, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.uploads[sessionID]; ok && held == documentID {
		delete(s.uploads, sessionID)
	}
}

func (s *Service) acquireQuestion(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.questions[sessionID] {
		return false
	}
	s.questions[sessionID] = true
	return true
}

func (s *Service) releaseQuestion(sessionID string) {
	s.mu.Lock()
	delete(s.questions, sessionID)
	s.mu.Unlock()
}
