package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

func seedSchedule(t *testing.T, id, handle string, active bool, next *time.Time) *domain.Schedule {
	t.Helper()
	return &domain.Schedule{
		ScheduleID:      id,
		Handle:          handle,
		TouchpointType:  "profile_visit",
		TouchpointInput: datatypes.JSONMap{"type": "profile_visit"},
		Cron:            "0 * * * *",
		NextRunAt:       next,
		Active:          active,
	}
}

func TestSchedules_CRUD(t *testing.T) {
	db := newTestDB(t, &domain.Schedule{})
	ctx := context.Background()

	next := time.Now().UTC().Add(time.Hour)
	s := seedSchedule(t, "s1", "alice", true, &next)
	if err := CreateSchedule(ctx, db, s); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if err := CreateSchedule(ctx, db, seedSchedule(t, "s2", "bob", true, &next)); err != nil {
		t.Fatalf("CreateSchedule s2: %v", err)
	}

	got, err := GetSchedule(ctx, db, "s1")
	if err != nil || got.Handle != "alice" || !got.Active {
		t.Fatalf("GetSchedule = %+v, %v", got, err)
	}

	list, err := ListSchedules(ctx, db, "alice")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSchedules(alice) = %d, %v", len(list), err)
	}
	all, _ := ListSchedules(ctx, db, "")
	if len(all) != 2 {
		t.Fatalf("ListSchedules(all) = %d; want 2", len(all))
	}

	if err := UpdateSchedule(ctx, db, "s1", map[string]any{"active": false}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	got, _ = GetSchedule(ctx, db, "s1")
	if got.Active {
		t.Fatalf("expected schedule paused")
	}
	if err := UpdateSchedule(ctx, db, "missing", map[string]any{"active": true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing, got %v", err)
	}

	if err := DeleteSchedule(ctx, db, "s1"); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if err := DeleteSchedule(ctx, db, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestListDueSchedules(t *testing.T) {
	db := newTestDB(t, &domain.Schedule{})
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	for _, s := range []*domain.Schedule{
		seedSchedule(t, "due", "a", true, &past),
		seedSchedule(t, "future", "a", true, &future),
		seedSchedule(t, "paused", "a", false, &past),
		seedSchedule(t, "unset", "a", true, nil),
	} {
		if err := CreateSchedule(ctx, db, s); err != nil {
			t.Fatalf("seed %s: %v", s.ScheduleID, err)
		}
	}

	due, err := ListDueSchedules(ctx, db, now)
	if err != nil {
		t.Fatalf("ListDueSchedules: %v", err)
	}
	if len(due) != 1 || due[0].ScheduleID != "due" {
		t.Fatalf("expected [due], got %+v", due)
	}
}
