package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/repo"
)

func newTestScheduler(t *testing.T) *ScheduleService {
	t.Helper()
	s := NewScheduleService(newTestDB(t), time.Second, zerolog.Nop())
	s.Now = func() time.Time { return pollNow }
	return s
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	next, err := NextRun("0 0 * * *", from)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v; want %v", next, want)
	}
	again, err := NextRun("0 0 * * *", next)
	if err != nil {
		t.Fatalf("NextRun: %v", err)
	}
	if !again.After(next) {
		t.Fatalf("second activation %v not after %v", again, next)
	}
}

func TestNextRun_Invalid(t *testing.T) {
	for _, expr := range []string{"", "every day", "61 * * * *", "* * * * * *"} {
		if _, err := NextRun(expr, pollNow); !errors.Is(err, ErrInvalidCron) {
			t.Fatalf("NextRun(%q) err = %v; want ErrInvalidCron", expr, err)
		}
	}
}

func TestScheduleService_Create(t *testing.T) {
	s := newTestScheduler(t)
	sc, err := s.Create(context.Background(), "alice", enrichInput(), "*/15 * * * *", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !sc.Active || sc.TouchpointType != "profile_enrich" {
		t.Fatalf("schedule = %+v", sc)
	}
	if sc.NextRunAt == nil || !sc.NextRunAt.Equal(pollNow.Add(15*time.Minute)) {
		t.Fatalf("next_run_at = %v", sc.NextRunAt)
	}
	got, err := s.Get(context.Background(), sc.ScheduleID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TouchpointInput["handle"] != "alice" || got.Tags["k"] != "v" {
		t.Fatalf("stored schedule = %+v", got)
	}
}

func TestScheduleService_CreateRejects(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, "alice", enrichInput(), "whenever", nil); !errors.Is(err, ErrInvalidCron) {
		t.Fatalf("err = %v; want ErrInvalidCron", err)
	}
	if _, err := s.Create(ctx, "", enrichInput(), "0 0 * * *", nil); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("err = %v; want ErrInvalidHandle", err)
	}
}

func TestScheduleService_ProcessDue(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	due, err := s.Create(ctx, "alice", enrichInput(), "0 0 * * *", map[string]any{"src": "cron"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	paused, err := s.Create(ctx, "bob", enrichInput(), "0 0 * * *", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Pause(ctx, paused.ScheduleID); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	fireAt := due.NextRunAt.Add(time.Minute)
	n, err := s.ProcessDue(ctx, fireAt)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("fired %d; want 1", n)
	}

	got, _ := s.Get(ctx, due.ScheduleID)
	if got.LastRunID == nil || got.LastRunAt == nil || !got.LastRunAt.Equal(fireAt) {
		t.Fatalf("last run not recorded: %+v", got)
	}
	wantNext := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(wantNext) {
		t.Fatalf("next_run_at = %v; want %v", got.NextRunAt, wantNext)
	}

	run, err := repo.GetRun(ctx, s.DB, *got.LastRunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != domain.RunPending || run.Handle != "alice" || run.TouchpointType != "profile_enrich" {
		t.Fatalf("run = %+v", run)
	}
	if run.TouchpointInput["run_id"] != run.RunID || run.Tags["src"] != "cron" {
		t.Fatalf("run input/tags = %v / %v", run.TouchpointInput, run.Tags)
	}

	// already advanced: a second poll at the same instant fires nothing
	if n, _ := s.ProcessDue(ctx, fireAt); n != 0 {
		t.Fatalf("refired %d schedules", n)
	}
}

func TestScheduleService_ProcessDueLateFiresOnce(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	sc, err := s.Create(ctx, "alice", enrichInput(), "0 0 * * *", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// three missed activations are not caught up
	late := sc.NextRunAt.Add(3*24*time.Hour + 9*time.Hour + 30*time.Minute)
	if n, err := s.ProcessDue(ctx, late); err != nil || n != 1 {
		t.Fatalf("ProcessDue = %d, %v; want 1", n, err)
	}
	got, _ := s.Get(ctx, sc.ScheduleID)
	wantNext := time.Date(late.Year(), late.Month(), late.Day()+1, 0, 0, 0, 0, time.UTC)
	if got.NextRunAt == nil || !got.NextRunAt.Equal(wantNext) {
		t.Fatalf("next_run_at = %v; want %v", got.NextRunAt, wantNext)
	}
	if n, err := s.ProcessDue(ctx, late.Add(time.Minute)); err != nil || n != 0 {
		t.Fatalf("second poll = %d, %v; want 0", n, err)
	}
	runs, err := repo.CountRuns(ctx, s.DB, repo.RunFilter{Handle: "alice"})
	if err != nil || runs != 1 {
		t.Fatalf("runs = %d (%v); want 1", runs, err)
	}
}

func TestScheduleService_ProcessDueSkipsBrokenSchedule(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()

	good, err := s.Create(ctx, "alice", enrichInput(), "0 0 * * *", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	broken, err := s.Create(ctx, "bob", enrichInput(), "0 0 * * *", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateSchedule(ctx, s.DB, broken.ScheduleID, map[string]any{"cron": "not a cron"}); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	n, err := s.ProcessDue(ctx, good.NextRunAt.Add(time.Second))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("fired %d; want 1", n)
	}
	if got, _ := s.Get(ctx, broken.ScheduleID); got.LastRunID != nil {
		t.Fatalf("broken schedule fired")
	}
}

func TestScheduleService_PauseResume(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	sc, err := s.Create(ctx, "alice", enrichInput(), "0 * * * *", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Pause(ctx, sc.ScheduleID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got, _ := s.Get(ctx, sc.ScheduleID); got.Active {
		t.Fatalf("schedule still active")
	}

	// resumed a day later: the stale next_run_at is recomputed from now
	s.Now = func() time.Time { return pollNow.Add(24 * time.Hour) }
	if err := s.Resume(ctx, sc.ScheduleID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	got, _ := s.Get(ctx, sc.ScheduleID)
	want := pollNow.Add(25 * time.Hour)
	if !got.Active || got.NextRunAt == nil || !got.NextRunAt.Equal(want) {
		t.Fatalf("resumed = active %v next %v; want next %v", got.Active, got.NextRunAt, want)
	}
}

func TestScheduleService_NotFound(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("Delete err = %v", err)
	}
	if err := s.Pause(ctx, "missing"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("Pause err = %v", err)
	}
	if err := s.Resume(ctx, "missing"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("Resume err = %v", err)
	}
}

func TestScheduleService_ListAndDelete(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	for _, h := range []string{"alice", "alice", "bob"} {
		if _, err := s.Create(ctx, h, enrichInput(), "0 0 * * *", nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list, err := s.List(ctx, "alice")
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %d, %v; want 2", len(list), err)
	}
	if err := s.Delete(ctx, list[0].ScheduleID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 {
		t.Fatalf("after delete len = %d; want 2", len(all))
	}
}
