// Package supervisor is the boundary-only component: it discovers shard
// pairs in the current day directory, dispatches one tailer per pair as a
// subprocess, routes exit codes to re-queue/archive/operator-review
// decisions, and rolls its directory pointer at day change. It never
// reads header or payload bytes itself.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/FrodeRanders/zlogtail/internal/config"
	"github.com/FrodeRanders/zlogtail/internal/dateutil"
	"github.com/FrodeRanders/zlogtail/internal/shardmap"
	"github.com/FrodeRanders/zlogtail/internal/tailer"
	"github.com/rs/zerolog"
)

const (
	openErrorRequeueDelay = 5 * time.Second
	giveUpParkDelay       = 24 * time.Hour
	baseFailureBackoff    = 10 * time.Second
	maxFailureBackoff     = 5 * time.Minute
)

// Service is the supervisor's long-running loop.
type Service struct {
	cfg *config.Config
	log zerolog.Logger

	registry *Registry
	shardMap *shardmap.Map

	mu      sync.Mutex
	date    time.Time
	running map[string]struct{}
	wg      sync.WaitGroup
}

// NewService opens the registry and shard map named by cfg and builds a
// Service bound to date (the working day; callers pass dateutil.Today()
// for the default "roll with the clock" mode).
func NewService(cfg *config.Config, log zerolog.Logger, date time.Time) (*Service, error) {
	registry, err := OpenRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}

	sm, err := shardmap.Load(cfg.ShardMapPath)
	if err != nil {
		registry.Close()
		return nil, err
	}

	return &Service{
		cfg:      cfg,
		log:      log,
		registry: registry,
		shardMap: sm,
		date:     date,
		running:  make(map[string]struct{}),
	}, nil
}

// Start scans and dispatches until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.log.Info().Str("base_dir", s.cfg.BaseDir).Str("date", dateutil.FormatDate(s.date)).Msg("supervisor starting")

	// Only a supervisor started on today's date rolls with the clock; any
	// other working day stays fixed.
	rollWithClock := !dateutil.DiffersFromToday(s.date)

	s.scanAndDispatch(ctx)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.mu.Lock()
			if rollWithClock && dateutil.DiffersFromToday(s.date) {
				s.log.Info().Str("from", dateutil.FormatDate(s.date)).Str("to", dateutil.FormatDate(dateutil.Today())).Msg("rolling supervisor directory pointer")
				s.date = dateutil.Today()
			}
			s.mu.Unlock()

			s.scanAndDispatch(ctx)
		}
	}
}

// Stop waits for in-flight tailer subprocesses to be reaped and closes the
// registry. It does not signal running subprocesses itself: they are
// started with exec.CommandContext on Start's context, so cancelling that
// context kills any still running, and Stop waits for their outcomes to be
// routed.
func (s *Service) Stop() error {
	s.wg.Wait()
	return s.registry.Close()
}

func (s *Service) dayDir() string {
	return fmt.Sprintf("%s/%s", s.cfg.BaseDir, dateutil.DatePath(s.date))
}

func (s *Service) scanAndDispatch(ctx context.Context) {
	dayDir := s.dayDir()

	pairs, err := DiscoverPairs(dayDir)
	if err != nil {
		s.log.Warn().Err(err).Str("day_dir", dayDir).Msg("failed to scan day directory")
		return
	}

	for _, pair := range pairs {
		s.mu.Lock()
		_, alreadyRunning := s.running[pair.Stem]
		s.mu.Unlock()
		if alreadyRunning {
			continue
		}

		eligible, err := s.registry.Eligible(pair.Stem)
		if err != nil {
			s.log.Warn().Err(err).Str("stem", pair.Stem).Msg("failed to check dispatch eligibility")
			continue
		}
		if !eligible {
			continue
		}

		s.dispatch(ctx, dayDir, pair)
	}
}

func (s *Service) dispatch(ctx context.Context, dayDir string, pair Pair) {
	info := s.shardMap.Lookup(pair.Stem)

	s.mu.Lock()
	s.running[pair.Stem] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, pair.Stem)
			s.mu.Unlock()
		}()

		status := s.runTailer(ctx, pair)

		logEntry := s.log.Info()
		if status != tailer.StatusEndedSuccessfully {
			logEntry = s.log.Warn()
		}
		logEntry.
			Str("stem", pair.Stem).
			Str("shard_name", info.Name).
			Str("status", status.String()).
			Msg("tailer subprocess exited")

		s.routeOutcome(pair.Stem, status)
	}()
}

// runTailer spawns the tailer binary for one pair and returns its exit
// status. A failure to even start the process (binary missing, etc.) is
// reported as StatusGeneralFailure so it re-queues with backoff rather
// than wedging the stem forever.
func (s *Service) runTailer(ctx context.Context, pair Pair) tailer.ExitStatus {
	args := []string{
		"-p", pair.Stem,
		s.cfg.BaseDir,
		dateutil.FormatDate(s.date),
		pair.HeaderName,
		pair.PayloadName,
	}

	cmd := exec.CommandContext(ctx, s.cfg.TailerBinPath, args...)
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("CLICKHOUSE_HOST=%s", s.cfg.ClickHouseHost),
		fmt.Sprintf("CLICKHOUSE_PORT=%d", s.cfg.ClickHousePort),
		fmt.Sprintf("CLICKHOUSE_DB=%s", s.cfg.ClickHouseDB),
		fmt.Sprintf("LOG_LEVEL=%s", s.cfg.LogLevel),
	)

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return tailer.ExitStatus(exitErr.ExitCode())
		}
		s.log.Error().Err(err).Str("stem", pair.Stem).Msg("failed to run tailer subprocess")
		return tailer.StatusGeneralFailure
	}
	return tailer.StatusEndedSuccessfully
}

func (s *Service) routeOutcome(stem string, status tailer.ExitStatus) {
	switch status {
	case tailer.StatusEndedSuccessfully:
		if err := s.registry.Clear(stem); err != nil {
			s.log.Warn().Err(err).Str("stem", stem).Msg("failed to clear registry entry")
		}
	case tailer.StatusEndedUnsuccessfully:
		// Operator review; the state file stays in place. Park it well
		// past the scan interval so it isn't re-dispatched every cycle.
		if err := s.registry.RecordRequeue(stem, giveUpParkDelay); err != nil {
			s.log.Warn().Err(err).Str("stem", stem).Msg("failed to park stem for operator review")
		}
	case tailer.StatusHeaderOpenFailed, tailer.StatusPayloadOpenFailed:
		if err := s.registry.RecordRequeue(stem, openErrorRequeueDelay); err != nil {
			s.log.Warn().Err(err).Str("stem", stem).Msg("failed to schedule re-queue")
		}
	default:
		delay := s.backoffFor(stem)
		if err := s.registry.RecordRequeue(stem, delay); err != nil {
			s.log.Warn().Err(err).Str("stem", stem).Msg("failed to schedule backoff re-queue")
		}
	}
}

// backoffFor computes an exponential delay from stem's current failure
// count: baseFailureBackoff * 2^failCount, capped at maxFailureBackoff.
func (s *Service) backoffFor(stem string) time.Duration {
	failCount, err := s.registry.FailCount(stem)
	if err != nil {
		return baseFailureBackoff
	}

	delay := baseFailureBackoff
	for i := 0; i < failCount && delay < maxFailureBackoff; i++ {
		delay *= 2
	}
	return minDuration(delay, maxFailureBackoff)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
