package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/config"
	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/repo"
)

// RunExecutor is what the poller dispatches to. It is implemented by *RunService.
type RunExecutor interface {
	Execute(ctx context.Context, runID string) error
	Active(runID string) bool
}

// idempotencyPurgeEvery spaces out deletion of expired idempotency keys.
const idempotencyPurgeEvery = time.Hour

// Poller picks up pending runs that nobody dispatched and, depending on
// StuckPolicy, recovers running runs abandoned by a previous process. It
// also prunes expired idempotency keys.
type Poller struct {
	DB       *gorm.DB
	Runs     RunExecutor
	Interval time.Duration
	Batch    int

	// StuckPolicy is one of config.StuckRunNone, StuckRunFail, StuckRunRequeue.
	StuckPolicy string
	StuckAfter  time.Duration

	Log zerolog.Logger
	Now func() time.Time

	lastPurge time.Time
}

// NewPoller builds a Poller from the workers configuration.
func NewPoller(db *gorm.DB, runs RunExecutor, cfg config.WorkersConfig, log zerolog.Logger) *Poller {
	return &Poller{
		DB:          db,
		Runs:        runs,
		Interval:    cfg.PendingPollInterval,
		Batch:       cfg.PendingPollBatch,
		StuckPolicy: cfg.StuckRunPolicy,
		StuckAfter:  cfg.StuckRunAfter,
		Log:         log,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	p.Log.Info().Dur("interval", p.Interval).Int("batch", p.Batch).Str("stuck_policy", p.StuckPolicy).Msg("pending-run poller started")
	for {
		p.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Tick performs one poll and returns the number of runs dispatched.
func (p *Poller) Tick(ctx context.Context) int {
	p.recoverStuck(ctx)
	p.purgeIdempotency(ctx)

	runs, err := repo.ListPendingRuns(ctx, p.DB, p.Batch)
	if err != nil {
		p.Log.Error().Err(err).Msg("list pending runs failed")
		return 0
	}
	n := 0
	for _, r := range runs {
		if p.Runs.Active(r.RunID) {
			continue
		}
		if err := p.Runs.Execute(ctx, r.RunID); err != nil {
			p.Log.Error().Err(err).Str("run_id", r.RunID).Msg("dispatch pending run failed")
			continue
		}
		n++
	}
	if n > 0 {
		observability.PollerDispatched(n)
		p.Log.Debug().Int("dispatched", n).Msg("pending runs dispatched")
	}
	return n
}

// recoverStuck applies StuckPolicy to running runs older than StuckAfter
// that this process is not executing.
func (p *Poller) recoverStuck(ctx context.Context) {
	if p.StuckPolicy == "" || p.StuckPolicy == config.StuckRunNone {
		return
	}
	now := p.now()
	stale, err := repo.ListStaleRunning(ctx, p.DB, now.Add(-p.StuckAfter), p.Batch)
	if err != nil {
		p.Log.Error().Err(err).Msg("list stale runs failed")
		return
	}
	for _, r := range stale {
		if p.Runs.Active(r.RunID) {
			continue
		}
		log := p.Log.With().Str("run_id", r.RunID).Str("handle", r.Handle).Logger()
		switch p.StuckPolicy {
		case config.StuckRunRequeue:
			ok, err := repo.RequeueRun(ctx, p.DB, r.RunID)
			if err != nil {
				log.Error().Err(err).Msg("requeue stuck run failed")
			} else if ok {
				log.Warn().Msg("stuck run requeued")
			}
		case config.StuckRunFail:
			msg := fmt.Sprintf("Run abandoned: no progress for %s", p.StuckAfter)
			out := repo.RunOutcome{Status: domain.RunFailed, Error: &msg, CompletedAt: now}
			if r.StartedAt != nil {
				out.DurationMS = now.Sub(*r.StartedAt).Milliseconds()
			}
			if err := repo.FinishRun(ctx, p.DB, r.RunID, out); err != nil {
				log.Error().Err(err).Msg("fail stuck run failed")
			} else {
				log.Warn().Msg("stuck run marked failed")
			}
		}
	}
}

func (p *Poller) purgeIdempotency(ctx context.Context) {
	now := p.now()
	if now.Sub(p.lastPurge) < idempotencyPurgeEvery {
		return
	}
	p.lastPurge = now
	n, err := repo.PurgeIdempotency(ctx, p.DB, now)
	if err != nil {
		p.Log.Error().Err(err).Msg("purge idempotency keys failed")
		return
	}
	if n > 0 {
		p.Log.Debug().Int64("purged", n).Msg("expired idempotency keys purged")
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}
