package supervisor

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	r, err := OpenRegistry(path)
	if err != nil {
		t.Fatalf("OpenRegistry() error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestEligibleWithNoRecordedState(t *testing.T) {
	r := openTestRegistry(t)
	ok, err := r.Eligible("shard1")
	if err != nil {
		t.Fatalf("Eligible() error: %v", err)
	}
	if !ok {
		t.Fatal("a stem with no backoff state should be eligible")
	}
}

func TestRecordRequeueMakesStemIneligibleUntilDelayElapses(t *testing.T) {
	r := openTestRegistry(t)
	if err := r.RecordRequeue("shard1", time.Hour); err != nil {
		t.Fatalf("RecordRequeue() error: %v", err)
	}

	ok, err := r.Eligible("shard1")
	if err != nil {
		t.Fatalf("Eligible() error: %v", err)
	}
	if ok {
		t.Fatal("stem should not be eligible before NextAttempt")
	}

	count, err := r.FailCount("shard1")
	if err != nil {
		t.Fatalf("FailCount() error: %v", err)
	}
	if count != 1 {
		t.Fatalf("FailCount() = %d, want 1", count)
	}
}

func TestRecordRequeueAccumulatesFailCount(t *testing.T) {
	r := openTestRegistry(t)
	for i := 0; i < 3; i++ {
		if err := r.RecordRequeue("shard1", time.Millisecond); err != nil {
			t.Fatalf("RecordRequeue() error: %v", err)
		}
	}

	count, err := r.FailCount("shard1")
	if err != nil {
		t.Fatalf("FailCount() error: %v", err)
	}
	if count != 3 {
		t.Fatalf("FailCount() = %d, want 3", count)
	}
}

func TestClearRemovesBackoffState(t *testing.T) {
	r := openTestRegistry(t)
	if err := r.RecordRequeue("shard1", time.Hour); err != nil {
		t.Fatalf("RecordRequeue() error: %v", err)
	}
	if err := r.Clear("shard1"); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}

	ok, err := r.Eligible("shard1")
	if err != nil {
		t.Fatalf("Eligible() error: %v", err)
	}
	if !ok {
		t.Fatal("stem should be eligible again after Clear")
	}
	count, err := r.FailCount("shard1")
	if err != nil {
		t.Fatalf("FailCount() error: %v", err)
	}
	if count != 0 {
		t.Fatalf("FailCount() = %d, want 0 after Clear", count)
	}
}
