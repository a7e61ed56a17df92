// Package services – ScheduleService
//
// ScheduleService stores cron schedules and turns due ones into pending
// runs. Due schedules are found by polling; after firing, next_run_at is
// recomputed from the poll time, so a schedule missed during downtime fires
// once rather than catching up.
package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/repo"
)

// NextRun returns the first activation of the five-field cron expression
// strictly after from, in UTC.
func NextRun(expr string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	next := sched.Next(from.UTC())
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %q never fires", ErrInvalidCron, expr)
	}
	return next, nil
}

// ScheduleService manages schedules and fires due ones.
type ScheduleService struct {
	DB       *gorm.DB
	Log      zerolog.Logger
	Interval time.Duration
	Now      func() time.Time
}

// NewScheduleService returns a ScheduleService polling every interval.
func NewScheduleService(db *gorm.DB, interval time.Duration, log zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		DB:       db,
		Log:      log,
		Interval: interval,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

var scheduleTracer = otel.Tracer("services/ScheduleService")

// Create stores an active schedule whose first run is the next activation
// of expr after now.
func (s *ScheduleService) Create(ctx context.Context, handle string, input map[string]any, expr string, tags map[string]any) (*domain.Schedule, error) {
	ctx, span := scheduleTracer.Start(ctx, "Create", trace.WithAttributes(
		attribute.String("account.handle", handle),
		attribute.String("schedule.cron", expr),
	))
	defer span.End()

	if !repo.ValidHandle(handle) {
		return nil, ErrInvalidHandle
	}
	now := s.now()
	next, err := NextRun(expr, now)
	if err != nil {
		return nil, err
	}
	kind := domain.UnknownTouchpointType
	if t, ok := input["type"].(string); ok && t != "" {
		kind = t
	}
	in := datatypes.JSONMap(maps.Clone(input))
	if in == nil {
		in = datatypes.JSONMap{}
	}
	in["handle"] = handle
	sc := &domain.Schedule{
		ScheduleID:      uuid.NewString(),
		Handle:          handle,
		TouchpointType:  kind,
		TouchpointInput: in,
		Cron:            expr,
		NextRunAt:       &next,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(tags) > 0 {
		sc.Tags = datatypes.JSONMap(maps.Clone(tags))
	}
	if err := repo.CreateSchedule(ctx, s.DB, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// Get returns a schedule by ID.
func (s *ScheduleService) Get(ctx context.Context, id string) (*domain.Schedule, error) {
	sc, err := repo.GetSchedule(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrScheduleNotFound
	}
	return sc, err
}

// List returns schedules, optionally for one handle.
func (s *ScheduleService) List(ctx context.Context, handle string) ([]domain.Schedule, error) {
	return repo.ListSchedules(ctx, s.DB, handle)
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	return notFound(repo.DeleteSchedule(ctx, s.DB, id), ErrScheduleNotFound)
}

// Pause stops a schedule from firing.
func (s *ScheduleService) Pause(ctx context.Context, id string) error {
	return notFound(repo.UpdateSchedule(ctx, s.DB, id, map[string]any{"active": false}), ErrScheduleNotFound)
}

// Resume reactivates a schedule. A next_run_at that is missing or already
// past is recomputed from now.
func (s *ScheduleService) Resume(ctx context.Context, id string) error {
	sc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fields := map[string]any{"active": true}
	now := s.now()
	if sc.NextRunAt == nil || sc.NextRunAt.Before(now) {
		next, err := NextRun(sc.Cron, now)
		if err != nil {
			return err
		}
		fields["next_run_at"] = next
	}
	return notFound(repo.UpdateSchedule(ctx, s.DB, id, fields), ErrScheduleNotFound)
}

// ProcessDue fires every active schedule due at now: it creates a pending
// run, moves next_run_at past now and records the run, in one transaction
// per schedule. A failing schedule is logged and the others still fire.
// It returns the number of runs created.
func (s *ScheduleService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	ctx, span := scheduleTracer.Start(ctx, "ProcessDue")
	defer span.End()

	due, err := repo.ListDueSchedules(ctx, s.DB, now)
	if err != nil {
		return 0, err
	}
	fired := 0
	for i := range due {
		sc := &due[i]
		log := s.Log.With().Str("schedule_id", sc.ScheduleID).Str("handle", sc.Handle).Logger()
		runID, err := s.fire(ctx, sc, now)
		if err != nil {
			observability.ScheduleFired("error")
			log.Error().Err(err).Msg("fire schedule failed")
			continue
		}
		observability.ScheduleFired("created")
		log.Info().Str("run_id", runID).Msg("schedule fired")
		fired++
	}
	span.SetAttributes(attribute.Int("schedules.due", len(due)), attribute.Int("schedules.fired", fired))
	return fired, nil
}

func (s *ScheduleService) fire(ctx context.Context, sc *domain.Schedule, now time.Time) (string, error) {
	next, err := NextRun(sc.Cron, now)
	if err != nil {
		return "", err
	}
	r := newRun(sc.Handle, sc.TouchpointInput, sc.Tags, now)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateRun(ctx, tx, r); err != nil {
			return err
		}
		return repo.UpdateSchedule(ctx, tx, sc.ScheduleID, map[string]any{
			"next_run_at": next,
			"last_run_id": r.RunID,
			"last_run_at": now,
		})
	})
	return r.RunID, err
}

// Run fires due schedules every Interval until ctx is done.
func (s *ScheduleService) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	s.Log.Info().Dur("interval", s.Interval).Msg("scheduler started")
	for {
		if _, err := s.ProcessDue(ctx, s.now()); err != nil {
			s.Log.Error().Err(err).Msg("scheduler poll failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (s *ScheduleService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// notFound maps repo.ErrNotFound to the service error target.
func notFound(err, target error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return target
	}
	return err
}
