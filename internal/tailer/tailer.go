// Package tailer implements the per-shard follower: a single-threaded poll
// loop that reads an append-only header stream whose writer may be
// mid-write, joins each complete record to its payload region, tolerates
// torn trailing records with a bounded retry budget, persists its read
// cursor after every consumed entry, and terminates on day rollover.
//
// This is deliberately not built around bufio.Scanner and a background
// goroutine the way a generic file tailer would be: the torn-write
// contract requires seeking back to a known-good offset and re-reading
// on every poll, not resuming a stream from where a scanner left off.
package tailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/FrodeRanders/zlogtail/internal/cursor"
	"github.com/FrodeRanders/zlogtail/internal/dateutil"
	"github.com/FrodeRanders/zlogtail/internal/headerrecord"
	"github.com/FrodeRanders/zlogtail/internal/sink"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/FrodeRanders/zlogtail/internal/tailer")

// Config describes one shard assignment.
type Config struct {
	ShardID        string
	BaseDir        string
	Date           time.Time
	HeaderName     string
	PayloadName    string
	PollInterval   time.Duration
	MaxTornRetries int
	MirrorCursor   bool // additionally publish cursor progress via the sink's CursorMirror capability
}

// Tailer is the state machine for one (header, payload) shard pair.
// It is not safe for concurrent use — the whole point of the design is a
// single-threaded loop with owned file handles.
type Tailer struct {
	cfg     Config
	log     zerolog.Logger
	trigger *sink.Trigger

	dayDir      string
	headerPath  string
	payloadPath string

	headerFile  *os.File
	payloadFile *os.File

	cursor         cursor.ShardCursor
	tornCounter    int
	entriesThisRun uint64
}

// New builds a Tailer. log is the injected logging handle (§9's note on
// treating the logger as a constructor argument rather than process-global
// state); trigger is the sink this shard's consumed entries flow through.
func New(cfg Config, log zerolog.Logger, trigger *sink.Trigger) *Tailer {
	dayDir := fmt.Sprintf("%s/%s", cfg.BaseDir, dateutil.DatePath(cfg.Date))
	return &Tailer{
		cfg:         cfg,
		log:         log.With().Str("shard_id", cfg.ShardID).Str("run_id", uuid.NewString()).Logger(),
		trigger:     trigger,
		dayDir:      dayDir,
		headerPath:  dayDir + "/" + cfg.HeaderName,
		payloadPath: dayDir + "/" + cfg.PayloadName,
	}
}

// Run opens the shard's files, replays its cursor, and runs the poll loop
// until rollover, give-up, a fatal error, or ctx cancellation. It never
// panics; every terminal condition is reported as an ExitStatus.
func (t *Tailer) Run(ctx context.Context) ExitStatus {
	t.cursor = cursor.Load(t.dayDir, t.cfg.ShardID)

	headerFile, err := os.Open(t.headerPath)
	if err != nil {
		t.log.Error().Err(err).Str("path", t.headerPath).Msg("failed to open header file")
		return StatusHeaderOpenFailed
	}
	t.headerFile = headerFile
	defer t.headerFile.Close()

	payloadFile, err := os.Open(t.payloadPath)
	if err != nil {
		t.log.Error().Err(err).Str("path", t.payloadPath).Msg("failed to open payload file")
		return StatusPayloadOpenFailed
	}
	t.payloadFile = payloadFile
	defer t.payloadFile.Close()

	for {
		if ctx.Err() != nil {
			t.log.Info().Msg("received shutdown signal, exiting after last persisted entry")
			return StatusInterrupted
		}

		reason, err := t.pollOnce(ctx)
		if err != nil {
			t.log.Error().Err(err).Msg("fatal error while polling shard")
			return StatusGeneralFailure
		}

		switch reason {
		case breakTorn:
			if t.tornCounter == 0 {
				t.tornCounter = t.cfg.MaxTornRetries
			} else {
				t.tornCounter--
			}
		}

		select {
		case <-ctx.Done():
			t.log.Info().Msg("received shutdown signal, exiting after last persisted entry")
			return StatusInterrupted
		case <-time.After(t.cfg.PollInterval):
		}

		rolled := dateutil.DiffersFromToday(t.cfg.Date)
		if rolled && t.tornCounter == 0 {
			return t.finishClean(ctx)
		}
		if t.tornCounter == 1 && rolled {
			return t.finishUnclean(ctx)
		}
	}
}

// breakReason explains why pollOnce stopped scanning header lines this
// iteration.
type breakReason int

const (
	breakDrained breakReason = iota
	breakTorn
	breakPayloadWait
)

// pollOnce seeks the header file to the current cursor and consumes as
// many complete, payload-available entries as it can find in a single
// pass, persisting the cursor after each one.
func (t *Tailer) pollOnce(ctx context.Context) (reason breakReason, err error) {
	ctx, span := tracer.Start(ctx, "tailer.poll", trace.WithAttributes(
		attribute.String("shard_id", t.cfg.ShardID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	info, err := os.Stat(t.headerPath)
	if err != nil {
		return breakDrained, fmt.Errorf("stat header: %w", err)
	}
	if uint64(info.Size()) <= t.cursor.HeaderOffset {
		return breakDrained, nil
	}

	if _, err := t.headerFile.Seek(int64(t.cursor.HeaderOffset), io.SeekStart); err != nil {
		return breakDrained, fmt.Errorf("seek header: %w", err)
	}
	reader := bufio.NewReader(t.headerFile)

	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if raw == "" {
					return breakDrained, nil
				}
				// No trailing newline: the writer is mid-append.
				return breakTorn, nil
			}
			return breakDrained, fmt.Errorf("read header: %w", err)
		}

		line := strings.TrimSuffix(raw, "\n")
		rec, err := headerrecord.Parse(line)
		if errors.Is(err, headerrecord.ErrTorn) {
			return breakTorn, nil
		}
		if err != nil {
			return breakDrained, fmt.Errorf("parse header record: %w", err)
		}

		end := rec.End()
		payloadInfo, err := os.Stat(t.payloadPath)
		if err != nil {
			return breakDrained, fmt.Errorf("stat payload: %w", err)
		}
		if uint64(payloadInfo.Size()) < end {
			return breakPayloadWait, nil
		}

		if _, err := t.payloadFile.Seek(int64(rec.PayloadOffset), io.SeekStart); err != nil {
			return breakDrained, fmt.Errorf("seek payload: %w", err)
		}

		inputBuf := make([]byte, rec.InputSize)
		if _, err := io.ReadFull(t.payloadFile, inputBuf); err != nil {
			return breakDrained, fmt.Errorf("read input region: %w", err)
		}
		outputBuf := make([]byte, rec.OutputSize)
		if _, err := io.ReadFull(t.payloadFile, outputBuf); err != nil {
			return breakDrained, fmt.Errorf("read output region: %w", err)
		}

		if err := t.trigger.Consume(ctx, t.cfg.ShardID, rec.Fields, inputBuf, outputBuf, &t.cursor); err != nil {
			return breakDrained, fmt.Errorf("sink consume: %w", err)
		}

		t.cursor.PayloadOffset = end
		t.cursor.HeaderOffset += uint64(len(raw))
		if err := t.saveCursor(ctx); err != nil {
			return breakDrained, fmt.Errorf("save cursor: %w", err)
		}
		t.tornCounter = 0
		t.entriesThisRun++
	}
}

func (t *Tailer) finishClean(ctx context.Context) ExitStatus {
	if err := t.trigger.Flush(ctx, t.cfg.ShardID, sink.FlushRolloverClean, &t.cursor); err != nil {
		t.log.Error().Err(err).Msg("clean rollover flush failed")
	}
	if err := t.saveCursor(ctx); err != nil {
		t.log.Error().Err(err).Msg("failed to save cursor on clean rollover")
	}
	fmt.Printf("Processed %d entries\n", t.entriesThisRun)
	return StatusEndedSuccessfully
}

func (t *Tailer) finishUnclean(ctx context.Context) ExitStatus {
	if err := t.trigger.Flush(ctx, t.cfg.ShardID, sink.FlushRolloverUnclean, &t.cursor); err != nil {
		t.log.Error().Err(err).Msg("unclean give-up flush failed")
	}
	if err := t.saveCursor(ctx); err != nil {
		t.log.Error().Err(err).Msg("failed to save cursor on give-up")
	}
	fmt.Printf("Giving up on %s after %d torn retries at headerOffset %d\n", t.headerPath, t.cfg.MaxTornRetries, t.cursor.HeaderOffset)
	return StatusEndedUnsuccessfully
}

// saveCursor persists the cursor to disk and, if configured, mirrors it to
// the downstream's monitoring sink. Mirror failures are logged, not fatal:
// the disk file is the only copy restart recovery depends on.
func (t *Tailer) saveCursor(ctx context.Context) error {
	if err := cursor.Save(t.dayDir, t.cfg.ShardID, t.cursor); err != nil {
		return err
	}
	if t.cfg.MirrorCursor {
		if err := t.trigger.MirrorCursor(ctx, t.cfg.ShardID, t.cursor); err != nil {
			t.log.Warn().Err(err).Msg("cursor mirror failed")
		}
	}
	return nil
}
