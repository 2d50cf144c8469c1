// Package cursor persists per-shard read progress to a plain-text state
// file colocated with the shard's header/payload pair. The format is fixed
// by the on-disk contract: four comma-separated non-negative integers on a
// single line. It is deliberately not backed by an embedded database —
// byte-exact compatibility with producers and other readers of the day
// directory rules that out.
package cursor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ShardCursor is the per-shard persisted progress.
type ShardCursor struct {
	HeaderOffset  uint64 // byte position in .header to resume reading
	PayloadOffset uint64 // end byte position consumed in .payload
	AccSize       uint64 // payload bytes consumed since last sink flush
	AccCount      uint64 // entries consumed since last sink flush
}

// StatePath returns the path of the state file for shardID inside dayDir.
func StatePath(dayDir, shardID string) string {
	return filepath.Join(dayDir, fmt.Sprintf("processor-%s.state", shardID))
}

// Load reads the cursor for shardID from dayDir. A missing or empty file
// yields a zero cursor. A file that exists but cannot be parsed into
// exactly four integers is logged and treated the same way — duplication
// on the next run is the chosen failure mode, not a silent skip.
func Load(dayDir, shardID string) ShardCursor {
	path := StatePath(dayDir, shardID)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Str("path", path).Msg("failed to read cursor state, resuming from zero")
		}
		return ShardCursor{}
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		return ShardCursor{}
	}

	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		log.Error().Str("path", path).Str("contents", line).Msg("corrupt cursor state, resuming from zero")
		return ShardCursor{}
	}

	values := make([]uint64, 4)
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			log.Error().Err(err).Str("path", path).Str("contents", line).Msg("corrupt cursor state, resuming from zero")
			return ShardCursor{}
		}
		values[i] = v
	}

	return ShardCursor{
		HeaderOffset:  values[0],
		PayloadOffset: values[1],
		AccSize:       values[2],
		AccCount:      values[3],
	}
}

// Save truncates and rewrites the state file with cursor's current value.
// A plain write-then-close is sufficient per the on-disk contract: a crash
// mid-write may leave either the prior or a torn file, and Load's
// corrupt-file fallback (resume from zero, replay everything) covers that
// case. Save is called after each successfully consumed entry.
func Save(dayDir, shardID string, cursor ShardCursor) error {
	path := StatePath(dayDir, shardID)
	line := fmt.Sprintf("%d,%d,%d,%d\n", cursor.HeaderOffset, cursor.PayloadOffset, cursor.AccSize, cursor.AccCount)

	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		return fmt.Errorf("cursor: save %s: %w", path, err)
	}
	return nil
}
