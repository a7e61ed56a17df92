// Package funnel moves profiles through the outreach lifecycle:
//
//	discovered -> enriched -> pending -> connected -> completed
//
// with failed as a terminal short-circuit. Each Step performs at most one
// browser action and persists the resulting state before returning, so a
// batch interrupted at any point resumes from the stored state.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/linkedin"
	"github.com/tbourn/go-outreach-backend/internal/observability"
	"github.com/tbourn/go-outreach-backend/internal/repo"
)

// DefaultMaxTransitions bounds the steps taken on one profile per batch.
const DefaultMaxTransitions = 16

// ErrNoIdentifier is returned for records without a usable public identifier.
var ErrNoIdentifier = errors.New("funnel: record has no public identifier")

// Record is a profile fed to the funnel, plus its per-row campaign options.
type Record struct {
	PublicIdentifier string
	URL              string
	State            domain.ProfileState
	Snapshot         map[string]any

	ConnectNote     string
	FollowupMessage string
}

// ID returns the public identifier, derived from the URL when unset.
func (r *Record) ID() string { return r.Ref().ID() }

// Ref returns the record's profile address.
func (r *Record) Ref() linkedin.ProfileRef {
	return linkedin.ProfileRef{URL: r.URL, PublicIdentifier: r.PublicIdentifier}
}

// Steps performs the browser action behind each transition.
type Steps interface {
	Enrich(ctx context.Context, rec *Record) (*linkedin.Snapshot, error)
	Connect(ctx context.Context, rec *Record) (linkedin.ConnectionStatus, error)
	ConnectionStatus(ctx context.Context, rec *Record) (linkedin.ConnectionStatus, error)
	FollowUp(ctx context.Context, rec *Record) (linkedin.MessageStatus, error)
}

// Store persists funnel rows.
type Store interface {
	// Get returns the stored row or repo.ErrNotFound.
	Get(ctx context.Context, publicID string) (*domain.Profile, error)
	// Save writes state together with the snapshot and raw payload.
	Save(ctx context.Context, publicID, url string, state domain.ProfileState, snapshot, raw map[string]any) error
	// SetState writes only the state.
	SetState(ctx context.Context, publicID, url string, state domain.ProfileState) error
	// UpdatedAt returns the last update time of the stored ids.
	UpdatedAt(ctx context.Context, ids []string) (map[string]time.Time, error)
}

// Machine drives records through the funnel.
type Machine struct {
	Store Store
	Steps Steps
	Log   zerolog.Logger

	// MaxTransitions caps steps per profile per batch (DefaultMaxTransitions when <= 0).
	MaxTransitions int
}

// Step loads the stored state of rec, performs the one action that state
// calls for and persists the outcome. It returns the record to continue
// with, or nil when this profile is done for now. rec.State always holds
// the last known state on return.
//
// linkedin.ErrSkipProfile and linkedin.ErrConnectionLimit are returned
// unwrapped for the caller to act on. Other errors leave the state unchanged.
func (m *Machine) Step(ctx context.Context, rec *Record, allowConnect bool) (*Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, ErrNoIdentifier
	}
	rec.PublicIdentifier = id

	row, err := m.Store.Get(ctx, id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		rec.State = domain.StateDiscovered
		if err := m.Store.Save(ctx, id, rec.URL, rec.State, rec.Snapshot, nil); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		rec.State = row.State
		if rec.URL == "" {
			rec.URL = row.URL
		}
		if len(row.Profile) > 0 {
			rec.Snapshot = row.Profile
		}
	}

	log := m.Log.With().Str("profile", id).Str("state", string(rec.State)).Logger()

	switch rec.State {
	case domain.StateCompleted, domain.StateFailed:
		return nil, nil

	case domain.StateDiscovered:
		snap, err := m.Steps.Enrich(ctx, rec)
		switch {
		case errors.Is(err, linkedin.ErrProfileUnavailable), err == nil && snap == nil:
			log.Info().Msg("no profile data, marking failed")
			return nil, m.transition(ctx, rec, domain.StateFailed)
		case err != nil:
			return nil, err
		}
		if rec.URL == "" {
			rec.URL = snap.URL
		}
		rec.Snapshot = snap.Map()
		if err := m.Store.Save(ctx, id, rec.URL, domain.StateEnriched, rec.Snapshot, snap.RawMap()); err != nil {
			return nil, err
		}
		rec.State = domain.StateEnriched
		observability.FunnelTransition(string(rec.State))
		return rec, nil

	case domain.StateEnriched:
		if !allowConnect {
			log.Debug().Msg("connections disabled for this batch")
			return nil, nil
		}
		status, err := m.Steps.Connect(ctx, rec)
		if err != nil {
			return nil, err
		}
		switch status {
		case linkedin.ConnectionConnected:
			return rec, m.transition(ctx, rec, domain.StateConnected)
		case linkedin.ConnectionPending:
			// acceptance is checked by a later batch
			return nil, m.transition(ctx, rec, domain.StatePending)
		default:
			return nil, fmt.Errorf("connect %s: unexpected status %q", id, status)
		}

	case domain.StatePending:
		status, err := m.Steps.ConnectionStatus(ctx, rec)
		if err != nil {
			return nil, err
		}
		if status != linkedin.ConnectionConnected {
			return nil, nil
		}
		return rec, m.transition(ctx, rec, domain.StateConnected)

	case domain.StateConnected:
		status, err := m.Steps.FollowUp(ctx, rec)
		if err != nil {
			return nil, err
		}
		if status != linkedin.MessageSent {
			log.Debug().Msg("follow-up skipped")
			return nil, nil
		}
		return nil, m.transition(ctx, rec, domain.StateCompleted)

	default:
		return nil, fmt.Errorf("profile %s: unknown state %q", id, rec.State)
	}
}

func (m *Machine) transition(ctx context.Context, rec *Record, to domain.ProfileState) error {
	if err := m.Store.SetState(ctx, rec.PublicIdentifier, rec.URL, to); err != nil {
		return err
	}
	rec.State = to
	observability.FunnelTransition(string(to))
	return nil
}
