// Package quota enforces per-account daily action ceilings and the
// consecutive-failure circuit breaker.
//
// Every call re-reads the account row; nothing is cached between calls.
// Counters are written read-modify-write without version checks, which
// is safe only while a single process acts on a handle at a time.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

const (
	// MaxConsecutiveFailures trips the breaker.
	MaxConsecutiveFailures = 5
	// DailyPostLimit caps post reactions and comments per account per day.
	DailyPostLimit = 30
)

// Service applies quota and breaker rules to accounts stored in DB.
type Service struct {
	DB  *gorm.DB
	Log zerolog.Logger

	// Now is the clock used for daily resets. Defaults to time.Now in UTC.
	Now func() time.Time
}

// New returns a Service using the wall clock.
func New(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{DB: db, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

var tracer = otel.Tracer("quota/Service")

// Check reports whether handle may perform an action of type t now.
// A denial is not an error: err is reserved for storage failures.
func (s *Service) Check(ctx context.Context, handle string, t touchpoint.Type) (allowed bool, reason string, err error) {
	ctx, span := tracer.Start(ctx, "Check", trace.WithAttributes(
		attribute.String("account.handle", handle),
		attribute.String("touchpoint.type", string(t)),
	))
	defer span.End()

	a, err := repo.GetAccount(ctx, s.DB, handle)
	if errors.Is(err, repo.ErrNotFound) {
		return s.deny(t, "Account not found")
	}
	if err != nil {
		return false, "", err
	}
	if a.Paused {
		why := "unknown"
		if a.PausedReason != nil && *a.PausedReason != "" {
			why = *a.PausedReason
		}
		return s.deny(t, "Account is paused: "+why)
	}
	if err := s.resetIfDue(ctx, a); err != nil {
		return false, "", err
	}

	switch t.Category() {
	case touchpoint.Connection:
		if a.ConnectionsToday >= a.DailyConnections {
			return s.deny(t, fmt.Sprintf("Daily connection quota exceeded (%d/%d)", a.ConnectionsToday, a.DailyConnections))
		}
	case touchpoint.Message:
		if a.MessagesToday >= a.DailyMessages {
			return s.deny(t, fmt.Sprintf("Daily message quota exceeded (%d/%d)", a.MessagesToday, a.DailyMessages))
		}
	case touchpoint.Post:
		if a.PostsToday >= DailyPostLimit {
			return s.deny(t, fmt.Sprintf("Daily post quota exceeded (%d/%d)", a.PostsToday, DailyPostLimit))
		}
	}
	return true, "", nil
}

func (s *Service) deny(t touchpoint.Type, reason string) (bool, string, error) {
	observability.QuotaDenied(t.Category().String())
	return false, reason, nil
}

// Increment counts one performed action of type t against handle's quota.
// Read-only types leave the counters alone.
func (s *Service) Increment(ctx context.Context, handle string, t touchpoint.Type) error {
	ctx, span := tracer.Start(ctx, "Increment", trace.WithAttributes(
		attribute.String("account.handle", handle),
		attribute.String("touchpoint.type", string(t)),
	))
	defer span.End()

	a, err := repo.GetAccount(ctx, s.DB, handle)
	if err != nil {
		return err
	}
	s.reset(a)
	switch t.Category() {
	case touchpoint.Connection:
		a.ConnectionsToday++
	case touchpoint.Message:
		a.MessagesToday++
	case touchpoint.Post:
		a.PostsToday++
	}
	return repo.SaveAccount(ctx, s.DB, a)
}

// RecordFailure counts a failed action. Reaching MaxConsecutiveFailures
// pauses the account until an administrator resumes it.
func (s *Service) RecordFailure(ctx context.Context, handle string) error {
	a, err := repo.GetAccount(ctx, s.DB, handle)
	if err != nil {
		return err
	}
	a.ConsecutiveFailures++
	if a.ConsecutiveFailures >= MaxConsecutiveFailures && !a.Paused {
		reason := fmt.Sprintf("too_many_failures (%d consecutive)", a.ConsecutiveFailures)
		a.Paused = true
		a.PausedReason = &reason
		observability.BreakerTripped()
		s.Log.Warn().Str("handle", handle).Int("failures", a.ConsecutiveFailures).Msg("account paused by circuit breaker")
	}
	return repo.SaveAccount(ctx, s.DB, a)
}

// RecordSuccess clears the consecutive-failure count.
func (s *Service) RecordSuccess(ctx context.Context, handle string) error {
	a, err := repo.GetAccount(ctx, s.DB, handle)
	if err != nil {
		return err
	}
	if a.ConsecutiveFailures == 0 {
		return nil
	}
	a.ConsecutiveFailures = 0
	return repo.SaveAccount(ctx, s.DB, a)
}

// resetIfDue persists a daily reset when one is due.
func (s *Service) resetIfDue(ctx context.Context, a *domain.Account) error {
	if !s.reset(a) {
		return nil
	}
	return repo.SaveAccount(ctx, s.DB, a)
}

// reset zeroes the counters when the reset instant is unset or has passed,
// and moves it to the next UTC midnight. It reports whether a changed.
func (s *Service) reset(a *domain.Account) bool {
	now := s.now()
	if a.QuotaResetAt != nil && now.Before(*a.QuotaResetAt) {
		return false
	}
	next := NextReset(now)
	a.ConnectionsToday, a.MessagesToday, a.PostsToday = 0, 0, 0
	a.QuotaResetAt = &next
	return true
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NextReset returns the first UTC midnight strictly after t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
