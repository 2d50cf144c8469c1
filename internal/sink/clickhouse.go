package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	chclient "github.com/FrodeRanders/zlogtail/internal/clickhouse"
	"github.com/FrodeRanders/zlogtail/internal/cursor"
	"github.com/rs/zerolog/log"
)

// entry is one buffered row awaiting flush.
type entry struct {
	shardID      string
	headerFields [7]string
	inputBuf     []byte
	outputBuf    []byte
	consumedAt   time.Time
}

// ClickHouseDownstream buffers consumed entries in memory and flushes them
// to ClickHouse as a single batch insert, mirroring the batch-snapshot
// discipline used elsewhere in this codebase: copy the pending slice out,
// clear the field under lock, and only then perform the (possibly slow)
// network write against the snapshot.
type ClickHouseDownstream struct {
	client *chclient.Client
	table  string

	mu      sync.Mutex
	pending []entry
}

// NewClickHouseDownstream creates a downstream sink writing to table via
// client. Table is expected to look like logs.payload_entries.
func NewClickHouseDownstream(client *chclient.Client, table string) *ClickHouseDownstream {
	return &ClickHouseDownstream{
		client: client,
		table:  table,
	}
}

// Write appends one entry to the pending batch. It never itself triggers a
// flush — the Trigger's threshold decides that.
func (d *ClickHouseDownstream) Write(ctx context.Context, shardID string, headerFields [7]string, inputBuf, outputBuf []byte) error {
	// Copy buffers so the pending batch does not alias the caller's slices.
	in := append([]byte(nil), inputBuf...)
	out := append([]byte(nil), outputBuf...)

	d.mu.Lock()
	d.pending = append(d.pending, entry{
		shardID:      shardID,
		headerFields: headerFields,
		inputBuf:     in,
		outputBuf:    out,
		consumedAt:   time.Now(),
	})
	d.mu.Unlock()

	return nil
}

// Flush sends the pending batch snapshot to ClickHouse and clears it.
func (d *ClickHouseDownstream) Flush(ctx context.Context, shardID string, reason FlushReason) error {
	d.mu.Lock()
	snapshot := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	batch, err := d.client.Conn().PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", d.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range snapshot {
		err := batch.Append(
			e.consumedAt,
			e.shardID,
			e.headerFields[0],
			e.headerFields[1],
			e.headerFields[2],
			e.headerFields[3],
			e.headerFields[4],
			e.headerFields[5],
			e.headerFields[6],
			e.inputBuf,
			e.outputBuf,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	log.Info().
		Str("shard_id", shardID).
		Str("reason", reason.String()).
		Int("entries", len(snapshot)).
		Msg("flushed payload batch to clickhouse")

	return nil
}

// MirrorCursor inserts a progress row into <table>_cursor. It implements
// sink.CursorMirror; the tailer only calls it (through Trigger.MirrorCursor)
// when the operator has opted into cursor mirroring.
func (d *ClickHouseDownstream) MirrorCursor(ctx context.Context, shardID string, cur cursor.ShardCursor) error {
	stmt := fmt.Sprintf(
		"INSERT INTO %s_cursor (shard_id, header_offset, payload_offset, acc_size, acc_count, mirrored_at) VALUES (?, ?, ?, ?, ?, now())",
		d.table,
	)
	return d.client.Conn().Exec(ctx, stmt, shardID, cur.HeaderOffset, cur.PayloadOffset, cur.AccSize, cur.AccCount)
}

// Close flushes nothing (callers must Flush explicitly before Close) and
// closes the underlying client.
func (d *ClickHouseDownstream) Close() error {
	return d.client.Close()
}
