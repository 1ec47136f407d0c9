package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/summary"
)

// fakeStore keeps documents and applied summaries in memory.
type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	active    map[string]bool
	summaries map[string]*models.SummaryResult
	getErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:      map[string]*models.Document{},
		active:    map[string]bool{},
		summaries: map[string]*models.SummaryResult{},
	}
}

func (s *fakeStore) add(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = &models.Document{ID: id, SessionID: "s1", ExtractedText: text}
	s.active[id] = true
}

func (s *fakeStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return d, nil
}

func (s *fakeStore) ApplySummary(_ context.Context, sum *models.SummaryResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active[sum.DocumentID] {
		return false, nil
	}
	s.summaries[sum.DocumentID] = sum
	return true, nil
}

type fakeSummarizer struct {
	mode    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSummarizer) Mode() string {
	if f.mode == "" {
		return "remote"
	}
	return f.mode
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (*summary.Result, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &summary.Result{Text: "summary of " + text, Status: models.StatusOK, Mode: "remote"}, nil
}

func runJobs(t *testing.T, store Store, sum Summarizer, jobs ...Job) []error {
	t.Helper()
	pool := NewPool(2, 10, store, sum, logger.NewNop())

	var mu sync.Mutex
	var errs []error
	pool.SetCompletionHook(func(_ Job, err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})

	pool.Start()
	for _, j := range jobs {
		if err := pool.Submit(j); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Stop() // drains the queue

	return errs
}

func TestSummaryJobAppliesResult(t *testing.T) {
	store := newFakeStore()
	store.add("d1", "the text")

	job, err := NewSummaryJob("s1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	errs := runJobs(t, store, &fakeSummarizer{}, job)

	if len(errs) != 1 || errs[0] != nil {
		t.Fatalf("hook errors = %v", errs)
	}
	got := store.summaries["d1"]
	if got == nil || got.Text != "summary of the text" || got.Status != models.StatusOK {
		t.Errorf("summary = %+v", got)
	}
}

func TestSummaryJobSkipsMissingDocument(t *testing.T) {
	store := newFakeStore()
	job, _ := NewSummaryJob("s1", "gone")

	errs := runJobs(t, store, &fakeSummarizer{}, job)
	if len(errs) != 1 || errs[0] != nil {
		t.Errorf("hook errors = %v", errs)
	}
}

func TestSummaryJobDiscardsStaleResult(t *testing.T) {
	store := newFakeStore()
	store.add("d1", "old text")
	store.active["d1"] = false // replaced by a newer upload

	job, _ := NewSummaryJob("s1", "d1")
	runJobs(t, store, &fakeSummarizer{}, job)

	if _, ok := store.summaries["d1"]; ok {
		t.Error("stale summary was applied")
	}
}

func TestSummaryJobModelUnavailable(t *testing.T) {
	store := newFakeStore()
	store.add("d1", "text")

	job, _ := NewSummaryJob("s1", "d1")
	errs := runJobs(t, store, &fakeSummarizer{mode: "local", err: localmodel.ErrUnavailable}, job)

	if len(errs) != 1 || !errors.Is(errs[0], localmodel.ErrUnavailable) {
		t.Errorf("hook errors = %v", errs)
	}
	got := store.summaries["d1"]
	if got == nil || got.Status != models.StatusFailed || got.Text != ModelUnavailableMessage {
		t.Fatalf("summary = %+v", got)
	}
	if got.Mode != "local" {
		t.Errorf("mode = %q, want local", got.Mode)
	}
}

func TestSummaryJobDocumentLoadError(t *testing.T) {
	store := newFakeStore()
	store.add("d1", "text")
	store.getErr = errors.New("database is locked")

	job, _ := NewSummaryJob("s1", "d1")
	errs := runJobs(t, store, &fakeSummarizer{}, job)

	if len(errs) != 1 || !errors.Is(errs[0], store.getErr) {
		t.Errorf("hook errors = %v", errs)
	}
	got := store.summaries["d1"]
	if got == nil {
		t.Fatal("summary left pending")
	}
	if got.Status != models.StatusFailed || got.Text != LoadFailedMessage || got.SessionID != "s1" || got.Mode != "remote" {
		t.Errorf("summary = %+v", got)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	store := newFakeStore()
	store.add("d1", "text")
	sum := &fakeSummarizer{started: make(chan struct{}), release: make(chan struct{})}

	pool := NewPool(1, 1, store, sum, logger.NewNop())
	pool.Start()

	job, _ := NewSummaryJob("s1", "d1")
	if err := pool.Submit(job); err != nil {
		t.Fatal(err)
	}
	<-sum.started // the worker holds the first job

	if err := pool.Submit(job); err != nil {
		t.Fatalf("second submit should fill the buffer: %v", err)
	}
	if err := pool.Submit(job); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if pool.QueueSize() != 1 {
		t.Errorf("QueueSize = %d, want 1", pool.QueueSize())
	}

	close(sum.release)
	go func() {
		for range sum.started {
		}
	}()
	pool.Stop()
	close(sum.started)

	if err := pool.Submit(job); !errors.Is(err, ErrStopped) {
		t.Errorf("submit after stop = %v, want ErrStopped", err)
	}
}

func TestUnknownJobType(t *testing.T) {
	errs := runJobs(t, newFakeStore(), &fakeSummarizer{}, Job{ID: "x", Type: "nope"})
	if len(errs) != 1 || errs[0] == nil {
		t.Errorf("hook errors = %v", errs)
	}
}
