package sink

import (
	"context"
	"testing"

	"github.com/FrodeRanders/zlogtail/internal/cursor"
)

type fakeDownstream struct {
	writes      int
	flushes     []FlushReason
	writeErr    error
}

func (f *fakeDownstream) Write(ctx context.Context, shardID string, headerFields [7]string, inputBuf, outputBuf []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes++
	return nil
}

func (f *fakeDownstream) Flush(ctx context.Context, shardID string, reason FlushReason) error {
	f.flushes = append(f.flushes, reason)
	return nil
}

func (f *fakeDownstream) Close() error { return nil }

func TestConsumeAccumulatesAndFlushesOnSizeThreshold(t *testing.T) {
	down := &fakeDownstream{}
	trig := NewTrigger(down, 10, 1000)
	var cur cursor.ShardCursor

	if err := trig.Consume(context.Background(), "shard-1", [7]string{}, []byte("Input1234"), []byte("Output1"), &cur); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	if len(down.flushes) != 1 || down.flushes[0] != FlushThreshold {
		t.Fatalf("expected one threshold flush, got %v", down.flushes)
	}
	if cur.AccSize != 0 || cur.AccCount != 0 {
		t.Fatalf("accumulators not reset after flush: %+v", cur)
	}
}

func TestConsumeAccumulatesBelowThreshold(t *testing.T) {
	down := &fakeDownstream{}
	trig := NewTrigger(down, 1000, 1000)
	var cur cursor.ShardCursor

	if err := trig.Consume(context.Background(), "shard-1", [7]string{}, []byte("Input"), []byte("Output"), &cur); err != nil {
		t.Fatalf("Consume() error: %v", err)
	}

	if len(down.flushes) != 0 {
		t.Fatalf("expected no flush yet, got %v", down.flushes)
	}
	if cur.AccSize != uint64(len("Input")+len("Output")) || cur.AccCount != 1 {
		t.Fatalf("unexpected accumulators: %+v", cur)
	}
}

func TestConsumeRejectsCorruptInputBuffer(t *testing.T) {
	down := &fakeDownstream{}
	trig := NewTrigger(down, 1000, 1000)
	var cur cursor.ShardCursor

	// Ends with the marker but does not start with it: a mid-record slice.
	err := trig.Consume(context.Background(), "shard-1", [7]string{}, []byte("garbleInput"), []byte("Output"), &cur)
	if err == nil {
		t.Fatal("expected a shape-check error")
	}
	if down.writes != 0 {
		t.Fatalf("downstream should not have been written on shape-check failure")
	}
}

func TestFlushResetsAccumulatorsEvenWithoutPriorConsume(t *testing.T) {
	down := &fakeDownstream{}
	trig := NewTrigger(down, 1000, 1000)
	cur := cursor.ShardCursor{AccSize: 500, AccCount: 5}

	if err := trig.Flush(context.Background(), "shard-1", FlushRolloverClean, &cur); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if cur.AccSize != 0 || cur.AccCount != 0 {
		t.Fatalf("accumulators not reset: %+v", cur)
	}
	if len(down.flushes) != 1 || down.flushes[0] != FlushRolloverClean {
		t.Fatalf("expected one rollover-clean flush, got %v", down.flushes)
	}
}
