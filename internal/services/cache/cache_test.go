package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Fatal("hit on empty store")
	}

	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || got != "v" {
		t.Errorf("Get = (%q, %v, %v), want (v, true, nil)", got, ok, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "short", "1", time.Second)
	_ = m.Set(ctx, "forever", "2", 0)

	now = now.Add(2 * time.Second)

	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Error("expired entry returned")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl expired")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1 after lazy delete", m.Len())
	}
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	m.sweepAt = 3

	_ = m.Set(ctx, "a", "1", time.Second)
	_ = m.Set(ctx, "b", "1", time.Second)
	_ = m.Set(ctx, "c", "1", time.Hour)
	now = now.Add(time.Minute)
	_ = m.Set(ctx, "d", "1", time.Hour)

	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2 after sweep", m.Len())
	}
}

// TestRedis runs only against a real server: REDIS_URL=redis://localhost:6379/15.
func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, url, "learnsmart-test:")
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	if _, ok, err := r.Get(ctx, "nope-"+time.Now().String()); ok || err != nil {
		t.Errorf("miss = (%v, %v)", ok, err)
	}
	if err := r.Set(ctx, "k", "value", time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := r.Get(ctx, "k")
	if err != nil || !ok || got != "value" {
		t.Errorf("Get = (%q, %v, %v)", got, ok, err)
	}
}
