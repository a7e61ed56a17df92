// Package services – AccountService
//
// AccountService administers the LinkedIn accounts runs act on and exposes
// each account's profile funnel.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/utils"
)

// Profile listing page sizes.
const (
	DefaultProfilePageSize = 50
	MaxProfilePageSize     = 500
)

// AccountInput is the writable configuration of an account. Nil optional
// fields take their defaults.
type AccountInput struct {
	Handle           string
	Username         string
	Password         string
	Active           *bool
	Proxy            *string
	BookingLink      *string
	DailyConnections *int
	DailyMessages    *int
}

// AccountService manages accounts and reads their profile databases.
type AccountService struct {
	DB         *gorm.DB
	ProfileDBs *repo.ProfileDBs
	Log        zerolog.Logger
}

var accountTracer = otel.Tracer("services/AccountService")

// Upsert creates the account or replaces its configuration. Counters and
// breaker state of an existing account are kept.
func (s *AccountService) Upsert(ctx context.Context, in AccountInput) (*domain.Account, error) {
	ctx, span := accountTracer.Start(ctx, "Upsert", trace.WithAttributes(attribute.String("account.handle", in.Handle)))
	defer span.End()

	if !repo.ValidHandle(in.Handle) {
		return nil, ErrInvalidHandle
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	a := &domain.Account{
		Handle:           in.Handle,
		Username:         strings.TrimSpace(in.Username),
		Password:         in.Password,
		Active:           true,
		Proxy:            emptyToNil(in.Proxy),
		BookingLink:      emptyToNil(in.BookingLink),
		DailyConnections: domain.DefaultDailyConnections,
		DailyMessages:    domain.DefaultDailyMessages,
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	if in.DailyConnections != nil {
		a.DailyConnections = *in.DailyConnections
	}
	if in.DailyMessages != nil {
		a.DailyMessages = *in.DailyMessages
	}
	if a.DailyConnections < 0 || a.DailyMessages < 0 {
		return nil, ErrInvalidLimits
	}
	if err := repo.UpsertAccount(ctx, s.DB, a); err != nil {
		return nil, err
	}
	s.Log.Info().Str("handle", a.Handle).Bool("active", a.Active).Msg("account saved")
	return s.Get(ctx, a.Handle)
}

// Get returns an account by handle.
func (s *AccountService) Get(ctx context.Context, handle string) (*domain.Account, error) {
	a, err := repo.GetAccount(ctx, s.DB, handle)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return a, err
}

// List returns accounts ordered by handle.
func (s *AccountService) List(ctx context.Context, activeOnly bool) ([]domain.Account, error) {
	return repo.ListAccounts(ctx, s.DB, activeOnly)
}

// Delete removes an account. Its profile database is left on disk.
func (s *AccountService) Delete(ctx context.Context, handle string) error {
	return notFound(repo.DeleteAccount(ctx, s.DB, handle), ErrAccountNotFound)
}

// Resume unpauses an account and clears its failure count.
func (s *AccountService) Resume(ctx context.Context, handle string) error {
	if err := notFound(repo.ResumeAccount(ctx, s.DB, handle), ErrAccountNotFound); err != nil {
		return err
	}
	s.Log.Info().Str("handle", handle).Msg("account resumed")
	return nil
}

// Profiles returns one page of the account's funnel rows, least recently
// updated first, with the total matching count.
func (s *AccountService) Profiles(ctx context.Context, handle string, state domain.ProfileState, page, pageSize int) ([]domain.Profile, int64, error) {
	ctx, span := accountTracer.Start(ctx, "Profiles", trace.WithAttributes(
		attribute.String("account.handle", handle),
		attribute.String("profile.state", string(state)),
	))
	defer span.End()

	if state != "" && !state.Valid() {
		return nil, 0, ErrInvalidState
	}
	if _, err := s.Get(ctx, handle); err != nil {
		return nil, 0, err
	}
	db, err := s.ProfileDBs.Get(handle)
	if err != nil {
		return nil, 0, err
	}
	_, size, offset := utils.PageWindow(page, pageSize, DefaultProfilePageSize, MaxProfilePageSize)
	total, err := repo.CountProfiles(ctx, db, state)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Profile{}, 0, nil
	}
	items, err := repo.ListProfilesPage(ctx, db, state, offset, size)
	return items, total, err
}

func emptyToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
