package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"session_id", "abc", "api_key", "AIza123", "Authorization", "Bearer x", "dangling"})
	want := []interface{}{"session_id", "abc", "api_key", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.With("component", "test").Info("hello", "token", "secret")
	l.Sync()
}
