// Package sink implements the accumulate-then-flush trigger the pair
// tailer calls after every consumed entry. It performs the shape checks
// the deployment requires on the joined input/output buffers, hands
// accepted entries to a downstream object-store collaborator, and flushes
// that collaborator's batch once the accumulators (which are themselves
// part of the persisted cursor) cross a configured threshold.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/FrodeRanders/zlogtail/internal/cursor"
)

// FlushReason distinguishes why a batch was flushed, for logging and for
// the downstream collaborator's own bookkeeping.
type FlushReason int

const (
	FlushThreshold FlushReason = iota
	FlushRolloverClean
	FlushRolloverUnclean
)

func (r FlushReason) String() string {
	switch r {
	case FlushThreshold:
		return "threshold"
	case FlushRolloverClean:
		return "rollover_clean"
	case FlushRolloverUnclean:
		return "rollover_unclean"
	default:
		return "unknown"
	}
}

// Downstream is the opaque object-store collaborator. Write appends one
// entry to its in-flight batch; Flush hands the batch off and clears it.
type Downstream interface {
	Write(ctx context.Context, shardID string, headerFields [7]string, inputBuf, outputBuf []byte) error
	Flush(ctx context.Context, shardID string, reason FlushReason) error
	Close() error
}

// CursorMirror is an optional capability a Downstream may implement to
// additionally publish cursor progress to a monitoring sink (for example a
// ClickHouse table dashboards can query without touching the shard
// directory). The on-disk cursor file remains the sole source of truth for
// restart recovery; a mirror failure is never fatal to the tailer.
type CursorMirror interface {
	MirrorCursor(ctx context.Context, shardID string, cur cursor.ShardCursor) error
}

// Trigger owns the accumulate/flush decision. It never persists anything
// itself — the caller is responsible for persisting the ShardCursor it
// mutates, since accSize/accCount survive restarts as part of that cursor.
type Trigger struct {
	downstream        Downstream
	nominalBatchSize  int64
	nominalBatchCount int64
}

// NewTrigger builds a Trigger over downstream with the given nominal
// thresholds (bytes, entry count).
func NewTrigger(downstream Downstream, nominalBatchSize, nominalBatchCount int64) *Trigger {
	return &Trigger{
		downstream:        downstream,
		nominalBatchSize:  nominalBatchSize,
		nominalBatchCount: nominalBatchCount,
	}
}

// Consume validates the joined buffers, forwards them to the downstream
// collaborator, and updates cur's accumulators. If either threshold is
// crossed it flushes immediately and resets the accumulators to zero.
func (t *Trigger) Consume(ctx context.Context, shardID string, headerFields [7]string, inputBuf, outputBuf []byte, cur *cursor.ShardCursor) error {
	if err := shapeCheck(inputBuf, outputBuf); err != nil {
		return err
	}

	if err := t.downstream.Write(ctx, shardID, headerFields, inputBuf, outputBuf); err != nil {
		return fmt.Errorf("sink: write: %w", err)
	}

	cur.AccSize += uint64(len(inputBuf) + len(outputBuf))
	cur.AccCount++

	if int64(cur.AccSize) > t.nominalBatchSize || int64(cur.AccCount) > t.nominalBatchCount {
		return t.Flush(ctx, shardID, FlushThreshold, cur)
	}
	return nil
}

// Flush hands the accumulated batch to the downstream collaborator and,
// once the downstream flush succeeds, resets cur's accumulators to zero.
// If the downstream flush fails, the error is returned and the
// accumulators are left unchanged.
func (t *Trigger) Flush(ctx context.Context, shardID string, reason FlushReason, cur *cursor.ShardCursor) error {
	if err := t.downstream.Flush(ctx, shardID, reason); err != nil {
		return fmt.Errorf("sink: flush (%s): %w", reason, err)
	}
	cur.AccSize = 0
	cur.AccCount = 0
	return nil
}

// MirrorCursor forwards cur to the downstream's CursorMirror capability, if
// it has one; otherwise it is a no-op.
func (t *Trigger) MirrorCursor(ctx context.Context, shardID string, cur cursor.ShardCursor) error {
	m, ok := t.downstream.(CursorMirror)
	if !ok {
		return nil
	}
	return m.MirrorCursor(ctx, shardID, cur)
}

// shapeCheck mirrors the corruption predicate the original generator's
// test data was built to trip: a buffer is corrupt if it does not start
// with its expected marker word but its tail still carries that marker,
// meaning the join sliced into the middle of a well-formed entry.
func shapeCheck(inputBuf, outputBuf []byte) error {
	input := string(inputBuf)
	if !strings.HasPrefix(input, "Input") && strings.HasSuffix(input, "Input") {
		return fmt.Errorf("sink: corrupt input buffer: %q", truncate(input))
	}

	output := string(outputBuf)
	if !strings.HasPrefix(output, "Output") && strings.HasSuffix(output, "Output") {
		return fmt.Errorf("sink: corrupt output buffer: %q", truncate(output))
	}

	return nil
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
