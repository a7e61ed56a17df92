// Package services – RunService
//
// RunService owns the run lifecycle. Create stores a pending run; Execute
// claims it and hands it to a goroutine that, under the account's lock,
// checks quota, validates the input, drives the browser and persists the
// outcome. A run's final row is always written, whatever the action did.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/browser"
	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/linkedin"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

// QuotaGate is the quota and breaker contract the pipeline relies on.
// It is implemented by *quota.Service.
type QuotaGate interface {
	Check(ctx context.Context, handle string, t touchpoint.Type) (allowed bool, reason string, err error)
	Increment(ctx context.Context, handle string, t touchpoint.Type) error
	RecordFailure(ctx context.Context, handle string) error
	RecordSuccess(ctx context.Context, handle string) error
}

// Automator is the LinkedIn capability bound to one run's page.
// It is implemented by *linkedin.Client.
type Automator interface {
	touchpoint.Automation
	EnsureLoggedIn(ctx context.Context) error
	ConnectionStatus(ctx context.Context, ref linkedin.ProfileRef) (linkedin.ConnectionStatus, error)
}

// RunService creates runs and executes them asynchronously, at most one
// at a time per account handle.
type RunService struct {
	DB        *gorm.DB
	Quota     QuotaGate
	Sessions  *browser.SessionManager
	Profiles  *repo.ProfileDBs
	Artifacts *observability.Artifacts
	Log       zerolog.Logger

	// NewAutomation builds the automation client for a run.
	NewAutomation func(page browser.Page, acct *domain.Account, log zerolog.Logger) Automator
	// MaxTransitions bounds campaign steps per profile.
	MaxTransitions int
	// Now is the clock used for run timestamps.
	Now func() time.Time

	locks HandleLocks
	wg    sync.WaitGroup

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunService wires a RunService that drives real LinkedIn clients paced by pace.
func NewRunService(db *gorm.DB, q QuotaGate, sessions *browser.SessionManager, profiles *repo.ProfileDBs, artifacts *observability.Artifacts, pace linkedin.Pacer, log zerolog.Logger) *RunService {
	return &RunService{
		DB:        db,
		Quota:     q,
		Sessions:  sessions,
		Profiles:  profiles,
		Artifacts: artifacts,
		Log:       log,
		NewAutomation: func(page browser.Page, acct *domain.Account, log zerolog.Logger) Automator {
			creds := linkedin.Credentials{Username: acct.Username, Password: acct.Password}
			return linkedin.NewClient(page, creds, pace, log)
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
}

var runTracer = otel.Tracer("services/RunService")

// newRun builds a pending run for handle. The input is copied and carries
// the handle and the new run ID; touchpoint_type is the raw "type" field.
func newRun(handle string, input, tags map[string]any, now time.Time) *domain.Run {
	id := uuid.NewString()
	in := datatypes.JSONMap(maps.Clone(input))
	if in == nil {
		in = datatypes.JSONMap{}
	}
	in["handle"] = handle
	in["run_id"] = id

	kind := domain.UnknownTouchpointType
	if t, ok := input["type"].(string); ok && t != "" {
		kind = t
	}
	var tagMap datatypes.JSONMap
	if len(tags) > 0 {
		tagMap = datatypes.JSONMap(maps.Clone(tags))
	}
	return &domain.Run{
		RunID:           id,
		Handle:          handle,
		TouchpointType:  kind,
		TouchpointInput: in,
		Status:          domain.RunPending,
		Tags:            tagMap,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate parses input as it would be executed for handle, without
// storing anything. Errors match touchpoint.ErrValidation or ErrInvalidHandle.
func (s *RunService) Validate(handle string, input map[string]any) (touchpoint.Input, error) {
	if !repo.ValidHandle(handle) {
		return nil, ErrInvalidHandle
	}
	in := maps.Clone(input)
	if in == nil {
		in = map[string]any{}
	}
	in["handle"] = handle
	in["run_id"] = uuid.NewString()
	return touchpoint.Parse(in)
}

// Create stores a pending run for handle.
func (s *RunService) Create(ctx context.Context, handle string, input, tags map[string]any) (*domain.Run, error) {
	ctx, span := runTracer.Start(ctx, "Create", trace.WithAttributes(attribute.String("account.handle", handle)))
	defer span.End()

	if !repo.ValidHandle(handle) {
		return nil, ErrInvalidHandle
	}
	r := newRun(handle, input, tags, s.now())
	if err := repo.CreateRun(ctx, s.DB, r); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("run.id", r.RunID), attribute.String("touchpoint.type", r.TouchpointType))
	return r, nil
}

// Get returns a run by ID.
func (s *RunService) Get(ctx context.Context, runID string) (*domain.Run, error) {
	r, err := repo.GetRun(ctx, s.DB, runID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRunNotFound
	}
	return r, err
}

// ListPage returns runs newest first with the total matching count.
func (s *RunService) ListPage(ctx context.Context, handle string, status domain.RunStatus, limit, offset int) ([]domain.Run, int64, error) {
	ctx, span := runTracer.Start(ctx, "ListPage", trace.WithAttributes(
		attribute.String("account.handle", handle),
		attribute.String("run.status", string(status)),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	))
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	f := repo.RunFilter{Handle: handle, Status: status}
	total, err := repo.CountRuns(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Run{}, 0, nil
	}
	items, err := repo.ListRunsPage(ctx, s.DB, f, offset, limit)
	return items, total, err
}

// Stats returns the count and latest update of the runs a listing would
// return, for cache validators.
func (s *RunService) Stats(ctx context.Context, handle string, status domain.RunStatus) (int64, *time.Time, error) {
	return repo.RunsStats(ctx, s.DB, repo.RunFilter{Handle: handle, Status: status})
}

// Execute claims a pending run and dispatches it in the background. A run
// that is not pending is left alone. Execute returns once the run is
// claimed; the caller's cancellation does not reach the dispatched work.
func (s *RunService) Execute(ctx context.Context, runID string) error {
	ctx, span := runTracer.Start(ctx, "Execute", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	r, err := repo.GetRun(ctx, s.DB, runID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRunNotFound
	}
	if err != nil {
		return err
	}
	log := s.Log.With().Str("run_id", r.RunID).Str("handle", r.Handle).Logger()
	if r.Status != domain.RunPending {
		log.Warn().Str("status", string(r.Status)).Msg("run is not pending, nothing to do")
		return nil
	}
	claimed, err := repo.ClaimRun(ctx, s.DB, runID, s.now())
	if err != nil {
		return err
	}
	if !claimed {
		log.Info().Msg("run already claimed")
		return nil
	}

	s.track(runID)
	s.wg.Add(1)
	observability.RunStarted()
	go func() {
		defer s.wg.Done()
		defer s.untrack(runID)
		s.process(context.WithoutCancel(ctx), r, log)
	}()
	return nil
}

// Wait blocks until every dispatched run has been persisted.
func (s *RunService) Wait() { s.wg.Wait() }

// Active reports whether runID is being processed by this process.
func (s *RunService) Active(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[runID]
	return ok
}

func (s *RunService) track(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		s.active = make(map[string]struct{})
	}
	s.active[id] = struct{}{}
}

func (s *RunService) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// process runs under the handle lock from quota check to persistence.
func (s *RunService) process(ctx context.Context, r *domain.Run, log zerolog.Logger) {
	ctx, span := runTracer.Start(ctx, "process", trace.WithAttributes(
		attribute.String("run.id", r.RunID),
		attribute.String("account.handle", r.Handle),
		attribute.String("touchpoint.type", r.TouchpointType),
	))
	defer span.End()

	unlock := s.locks.Lock(r.Handle)
	defer unlock()

	start := s.now()
	if err := repo.MarkRunStarted(ctx, s.DB, r.RunID, start); err != nil {
		log.Warn().Err(err).Msg("re-stamp started_at failed")
	}

	res, capture := s.perform(ctx, r, log)

	end := s.now()
	out := repo.RunOutcome{
		Status:      domain.RunCompleted,
		CompletedAt: end,
		DurationMS:  end.Sub(start).Milliseconds(),
	}
	if res.Success {
		out.Result = datatypes.JSONMap(res.Result)
	} else {
		out.Status = domain.RunFailed
		msg := res.Error
		out.Error = &msg
		span.SetAttributes(attribute.String("run.error", msg))
	}
	if capture.Screenshot != "" {
		out.ErrorScreenshot = &capture.Screenshot
	}
	if len(capture.ConsoleLogs) > 0 {
		if b, err := json.Marshal(capture.ConsoleLogs); err == nil {
			out.ConsoleLogs = b
		}
	}
	if err := repo.FinishRun(ctx, s.DB, r.RunID, out); err != nil {
		log.Error().Err(err).Msg("persist run outcome failed")
	}
	observability.RunFinished(r.TouchpointType, string(out.Status), end.Sub(start))
	log.Info().Str("status", string(out.Status)).Int64("duration_ms", out.DurationMS).Msg("run finished")
}

// perform does the work of a claimed run and never panics.
func (s *RunService) perform(ctx context.Context, r *domain.Run, log zerolog.Logger) (res touchpoint.Result, capture observability.Capture) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("run panicked")
			res = touchpoint.Failed("panic: %v", p)
			s.recordFailure(ctx, r.Handle, log)
		}
	}()

	kind, err := touchpoint.ParseType(r.TouchpointType)
	if err != nil {
		kind = touchpoint.TypeProfileEnrich
	}
	allowed, reason, err := s.Quota.Check(ctx, r.Handle, kind)
	if err != nil {
		return touchpoint.Failed("Quota check failed: %v", err), capture
	}
	if !allowed {
		log.Info().Str("reason", reason).Msg("quota denied")
		return touchpoint.Failed("Quota check failed: %s", reason), capture
	}

	in, err := touchpoint.Parse(r.TouchpointInput)
	if err != nil {
		return touchpoint.Failed("%v", err), capture
	}

	acct, err := repo.GetAccount(ctx, s.DB, r.Handle)
	if err != nil {
		return touchpoint.Failed("load account: %v", err), capture
	}
	if s.Sessions == nil {
		return touchpoint.Failed("browser sessions not configured"), capture
	}
	opts := browser.LaunchOptions{Handle: r.Handle}
	if acct.Proxy != nil {
		opts.Proxy = *acct.Proxy
	}
	key := browser.SessionKey{Handle: r.Handle, RunID: r.RunID}
	_ = s.Sessions.With(key, opts, func(sess *browser.Session) error {
		res, capture = s.drive(ctx, sess, in, acct, log)
		return nil
	})
	return res, capture
}

// drive runs the touchpoint in sess. Failures are counted and captured
// while the browser is still open.
func (s *RunService) drive(ctx context.Context, sess *browser.Session, in touchpoint.Input, acct *domain.Account, log zerolog.Logger) (res touchpoint.Result, capture observability.Capture) {
	handle := acct.Handle
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("run panicked")
			res = touchpoint.Failed("panic: %v", p)
			capture = s.onFailure(ctx, handle, sess, "panic", log)
		}
	}()

	page, err := sess.Page(ctx)
	if err != nil {
		return touchpoint.Failed("Browser launch failed: %v", err), s.onFailure(ctx, handle, sess, "launch", log)
	}

	auto := s.NewAutomation(page, acct, log)
	if err := auto.EnsureLoggedIn(ctx); err != nil {
		return touchpoint.Failed("Login failed: %v", err), s.onFailure(ctx, handle, sess, "login", log)
	}

	ex, err := touchpoint.NewExecutor(in, s.deps(handle, auto, log))
	if err != nil {
		return touchpoint.Failed("%v", err), capture
	}
	res = ex.Execute(ctx)

	if !res.Success {
		return res, s.onFailure(ctx, handle, sess, "action", log)
	}
	if err := s.Quota.Increment(ctx, handle, in.Base().Kind); err != nil {
		log.Warn().Err(err).Msg("increment quota failed")
	}
	if err := s.Quota.RecordSuccess(ctx, handle); err != nil {
		log.Warn().Err(err).Msg("record success failed")
	}
	return res, capture
}

// onFailure counts a breaker failure and captures diagnostics from sess.
func (s *RunService) onFailure(ctx context.Context, handle string, sess *browser.Session, suffix string, log zerolog.Logger) observability.Capture {
	s.recordFailure(ctx, handle, log)
	if s.Artifacts == nil {
		return observability.Capture{}
	}
	return s.Artifacts.Capture(ctx, sess.Current(), sess.Key, suffix)
}

func (s *RunService) recordFailure(ctx context.Context, handle string, log zerolog.Logger) {
	if err := s.Quota.RecordFailure(ctx, handle); err != nil {
		log.Warn().Err(err).Msg("record failure failed")
	}
}

func (s *RunService) deps(handle string, auto Automator, log zerolog.Logger) touchpoint.Deps {
	d := touchpoint.Deps{Automation: auto}
	if s.Profiles != nil {
		d.Campaign = &Campaign{
			Handle:         handle,
			Auto:           auto,
			Quota:          s.Quota,
			Profiles:       s.Profiles,
			MaxTransitions: s.MaxTransitions,
			Log:            log,
		}
	}
	return d
}

func (s *RunService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
