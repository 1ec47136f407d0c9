package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shimizu-Technology/learnsmart-api/internal/config"
	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/database/databasetest"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/answer"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/genai"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/genai/genaitest"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/summary"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/worker"
)

const notes = "Cells are the basic unit of life. Mitochondria produce energy for the cell."

// heldQueue records jobs without running them, so a test decides when a
// summary settles.
type heldQueue struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (q *heldQueue) Submit(job worker.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fixture struct {
	svc    *Service
	db     *database.DB
	gemini *genaitest.Server
}

func newFixture(t *testing.T, queue func(db *database.DB, sum *summary.Service) Queue) *fixture {
	t.Helper()
	db := databasetest.New(t)
	gemini := genaitest.New("A model answer.")
	t.Cleanup(gemini.Close)

	log := logger.NewNop()
	client := genai.New("k", "gemini-test", gemini.URL, 5*time.Second)
	sum := summary.New(summary.Options{Mode: config.AIModeRemote, Remote: client, Log: log})
	ans := answer.New(answer.Options{Mode: config.AIModeRemote, Remote: client, Log: log})
	ext := extract.New(extract.RegexBackend{}, log)

	svc := New(db, ext, ans, queue(db, sum), config.AIModeRemote, log)
	return &fixture{svc: svc, db: db, gemini: gemini}
}

// withPool runs summaries on a real worker pool.
func withPool(t *testing.T) func(db *database.DB, sum *summary.Service) Queue {
	return func(db *database.DB, sum *summary.Service) Queue {
		pool := worker.NewPool(1, 10, db, sum, logger.NewNop())
		pool.Start()
		t.Cleanup(pool.Stop)
		return pool
	}
}

func (f *fixture) newSession(t *testing.T) string {
	t.Helper()
	sess, err := f.svc.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return sess.ID
}

func waitForSummary(t *testing.T, svc *Service, sessionID string) *models.SummaryResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sum, err := svc.Summary(context.Background(), sessionID)
		if err != nil {
			t.Fatal(err)
		}
		if sum.Status.Settled() {
			return sum
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("summary never settled")
	return nil
}

func TestUploadSummarizesInBackground(t *testing.T) {
	var pool *worker.Pool
	f := newFixture(t, func(db *database.DB, sum *summary.Service) Queue {
		pool = worker.NewPool(1, 10, db, sum, logger.NewNop())
		t.Cleanup(pool.Stop)
		return pool
	})
	pool.SetCompletionHook(f.svc.JobCompleted)
	pool.Start()

	id := f.newSession(t)
	state, err := f.svc.Upload(context.Background(), id, extract.Upload{Name: "notes.txt", MimeType: "text/plain", Data: []byte(notes)})
	if err != nil {
		t.Fatal(err)
	}
	if state.Document.ExtractedText != notes || state.Document.RawBytes != nil {
		t.Errorf("document = %+v", state.Document)
	}
	if state.Summary.SourceDocumentName != "notes.txt" {
		t.Errorf("summary source = %q", state.Summary.SourceDocumentName)
	}

	sum := waitForSummary(t, f.svc, id)
	if sum.Status != models.StatusOK || sum.Text != "A model answer." {
		t.Errorf("summary = %+v", sum)
	}

	// The flag is released once the job settles.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if uploading, _ := f.svc.Busy(id); !uploading {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("upload flag never released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUploadPlaceholderIsNotSummarized(t *testing.T) {
	q := &heldQueue{}
	f := newFixture(t, func(*database.DB, *summary.Service) Queue { return q })
	id := f.newSession(t)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	state, err := f.svc.Upload(context.Background(), id, extract.Upload{Name: "photo.png", Data: png})
	if err != nil {
		t.Fatal(err)
	}
	if state.Document.ExtractionStatus != models.StatusFailed {
		t.Errorf("extraction status = %s", state.Document.ExtractionStatus)
	}
	if state.Summary.Status != models.StatusFailed || state.Summary.Text != extract.PlaceholderImage {
		t.Errorf("summary = %+v", state.Summary)
	}
	if len(q.jobs) != 0 || f.gemini.Calls() != 0 {
		t.Error("placeholder reached the summarizer")
	}
	if uploading, _ := f.svc.Busy(id); uploading {
		t.Error("upload flag still held")
	}
}

func TestUploadIsRefusedWhileSummaryPending(t *testing.T) {
	q := &heldQueue{}
	f := newFixture(t, func(*database.DB, *summary.Service) Queue { return q })
	id := f.newSession(t)
	up := extract.Upload{Name: "notes.txt", Data: []byte(notes)}

	if _, err := f.svc.Upload(context.Background(), id, up); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Upload(context.Background(), id, up); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}

	// A question is not blocked by the pending upload.
	if _, err := f.svc.Ask(context.Background(), id, "What are cells?"); err != nil {
		t.Fatalf("Ask during upload: %v", err)
	}

	f.svc.JobCompleted(q.jobs[0], nil)
	if _, err := f.svc.Upload(context.Background(), id, up); err != nil {
		t.Errorf("upload after settle: %v", err)
	}
}

func TestUploadQueueFull(t *testing.T) {
	q := &heldQueue{err: worker.ErrQueueFull}
	f := newFixture(t, func(*database.DB, *summary.Service) Queue { return q })
	id := f.newSession(t)

	state, err := f.svc.Upload(context.Background(), id, extract.Upload{Name: "notes.txt", Data: []byte(notes)})
	if err != nil {
		t.Fatal(err)
	}
	if state.Summary.Status != models.StatusFailed || state.Summary.Text != QueueFullMessage {
		t.Errorf("summary = %+v", state.Summary)
	}
	stored, _ := f.svc.Summary(context.Background(), id)
	if stored.Status != models.StatusFailed {
		t.Errorf("stored summary = %+v", stored)
	}
	if uploading, _ := f.svc.Busy(id); uploading {
		t.Error("upload flag still held after queue failure")
	}
}

func TestAskHistoryAndContext(t *testing.T) {
	f := newFixture(t, withPool(t))
	id := f.newSession(t)
	ctx := context.Background()

	// No document: general path.
	e, err := f.svc.Ask(ctx, id, "What is 2+2?")
	if err != nil {
		t.Fatal(err)
	}
	if e.Source != models.SourceGeneral || e.Position != 1 {
		t.Errorf("exchange = %+v", e)
	}

	if _, err := f.svc.Upload(ctx, id, extract.Upload{Name: "notes.txt", Data: []byte(notes)}); err != nil {
		t.Fatal(err)
	}

	for i := 2; i <= 4; i++ {
		e, err := f.svc.Ask(ctx, id, fmt.Sprintf("  question %d  ", i))
		if err != nil {
			t.Fatal(err)
		}
		if e.Source != models.SourceDocument || e.Position != i || e.Question != fmt.Sprintf("question %d", i) {
			t.Errorf("exchange = %+v", e)
		}
	}

	var docPrompts int
	for _, r := range f.gemini.Requests() {
		if strings.Contains(r.Prompt, `Question: "question`) && strings.Contains(r.Prompt, notes) {
			docPrompts++
		}
	}
	if docPrompts != 3 {
		t.Errorf("document prompts = %d, want 3", docPrompts)
	}

	history, err := f.svc.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 4 {
		t.Fatalf("history = %d, want 4", len(history))
	}
	for i, h := range history {
		if h.Position != i+1 {
			t.Errorf("history[%d].Position = %d", i, h.Position)
		}
	}

	if _, err := f.svc.Ask(ctx, id, "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("blank question err = %v", err)
	}
}

func TestAskUsesGeneralPathForPlaceholderDocument(t *testing.T) {
	q := &heldQueue{}
	f := newFixture(t, func(*database.DB, *summary.Service) Queue { return q })
	id := f.newSession(t)
	ctx := context.Background()

	if _, err := f.svc.Upload(ctx, id, extract.Upload{Name: "old.doc", Data: []byte{0, 1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	e, err := f.svc.Ask(ctx, id, "Anything?")
	if err != nil {
		t.Fatal(err)
	}
	if e.Source != models.SourceGeneral {
		t.Errorf("source = %s, want general", e.Source)
	}
}

type blockingAnswerer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAnswerer) Answer(context.Context, string, string) (*answer.Result, error) {
	b.entered <- struct{}{}
	<-b.release
	return &answer.Result{Text: "ok", Status: models.StatusOK, Source: models.SourceGeneral}, nil
}

func TestAskIsRefusedWhileAnswering(t *testing.T) {
	db := databasetest.New(t)
	ans := &blockingAnswerer{entered: make(chan struct{}), release: make(chan struct{})}
	svc := New(db, extract.New(extract.RegexBackend{}, logger.NewNop()), ans, &heldQueue{}, config.AIModeRemote, logger.NewNop())

	sess, err := svc.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ask(context.Background(), sess.ID, "first")
		done <- err
	}()
	<-ans.entered

	if _, err := svc.Ask(context.Background(), sess.ID, "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}

	close(ans.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestRemoveDocumentClearsHistory(t *testing.T) {
	q := &heldQueue{}
	f := newFixture(t, func(*database.DB, *summary.Service) Queue { return q })
	id := f.newSession(t)
	ctx := context.Background()

	if err := f.svc.RemoveDocument(ctx, id); !errors.Is(err, ErrNoDocument) {
		t.Errorf("remove without document = %v, want ErrNoDocument", err)
	}

	if _, err := f.svc.Upload(ctx, id, extract.Upload{Name: "notes.txt", Data: []byte(notes)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Ask(ctx, id, "What are cells?"); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.RemoveDocument(ctx, id); err != nil {
		t.Fatal(err)
	}
	state, err := f.svc.State(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if state.Document != nil || state.Summary != nil || len(state.History) != 0 {
		t.Errorf("state after remove = %+v", state)
	}
	if _, err := f.svc.Summary(ctx, id); !errors.Is(err, ErrNoDocument) {
		t.Errorf("summary err = %v, want ErrNoDocument", err)
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t, withPool(t))
	ctx := context.Background()
	const missing = "00000000-0000-0000-0000-000000000000"

	if _, err := f.svc.State(ctx, missing); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("State err = %v", err)
	}
	if _, err := f.svc.Ask(ctx, missing, "q"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Ask err = %v", err)
	}
	if _, err := f.svc.Upload(ctx, missing, extract.Upload{Name: "a.txt", Data: []byte("hello there")}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Upload err = %v", err)
	}
}
