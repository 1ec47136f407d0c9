package localmodel_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/localmodel/localmodeltest"
)

func TestLoadIsCached(t *testing.T) {
	srv := localmodeltest.New()
	defer srv.Close()

	loader := localmodel.NewLoader(srv.URL, "", 5*time.Second, logger.NewNop())

	var wg sync.WaitGroup
	models := make([]*localmodel.Model, 8)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := loader.Load(context.Background())
			if err != nil {
				t.Errorf("Load: %v", err)
				return
			}
			models[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range models {
		if m != models[0] {
			t.Fatal("Load returned different models")
		}
	}
	if got := srv.HealthCalls.Load(); got != 1 {
		t.Errorf("health probed %d times, want 1", got)
	}
}

func TestLoadFallsBack(t *testing.T) {
	primary := localmodeltest.New()
	primary.Unhealthy.Store(true)
	defer primary.Close()
	fallback := localmodeltest.New()
	defer fallback.Close()

	m, err := localmodel.NewLoader(primary.URL, fallback.URL, 5*time.Second, logger.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Endpoint() != fallback.URL {
		t.Errorf("endpoint = %q, want fallback %q", m.Endpoint(), fallback.URL)
	}
}

func TestLoadFailureIsRetried(t *testing.T) {
	srv := localmodeltest.New()
	srv.Unhealthy.Store(true)
	defer srv.Close()

	loader := localmodel.NewLoader(srv.URL, "", 5*time.Second, logger.NewNop())
	if _, err := loader.Load(context.Background()); !errors.Is(err, localmodel.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	srv.Unhealthy.Store(false)
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
}

func TestModelCalls(t *testing.T) {
	srv := localmodeltest.New()
	defer srv.Close()

	m, err := localmodel.NewLoader(srv.URL, "", 5*time.Second, logger.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	summary, err := m.Summarize(context.Background(), "First sentence. Second sentence.", 30, 130)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "First sentence." {
		t.Errorf("summary = %q", summary)
	}
	calls := srv.Summaries()
	if len(calls) != 1 || calls[0].MinLength != 30 || calls[0].MaxLength != 130 {
		t.Errorf("summarize calls = %+v", calls)
	}

	ans, err := m.Answer(context.Background(), "Who?", "Ada wrote the first program.")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Text != "Ada" || ans.Score != 0.9 {
		t.Errorf("answer = %+v", ans)
	}

	srv.FailSummarize.Store(true)
	if _, err := m.Summarize(context.Background(), "x", 1, 2); err == nil {
		t.Error("expected summarize error")
	}
}
