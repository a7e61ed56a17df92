package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-outreach-backend/internal/funnel"
	"github.com/tbourn/go-outreach-backend/internal/linkedin"
	"github.com/tbourn/go-outreach-backend/internal/repo"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

// Campaign runs a connect-follow-up batch for one account through the
// profile funnel, consulting quota before every invitation and message.
type Campaign struct {
	Handle         string
	Auto           Automator
	Quota          QuotaGate
	Profiles       *repo.ProfileDBs
	MaxTransitions int
	Log            zerolog.Logger
}

// Run processes in.Profiles, least recently touched first, and returns
// the batch summary. A failed browser action ends the batch with an error.
func (c *Campaign) Run(ctx context.Context, in *touchpoint.ConnectFollowUp) (map[string]any, error) {
	db, err := c.Profiles.Get(c.Handle)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	records := make([]funnel.Record, 0, len(in.Profiles))
	for _, p := range in.Profiles {
		r := funnel.Record{
			URL:              p.URL,
			PublicIdentifier: p.PublicIdentifier,
			FollowupMessage:  p.FollowupMessage,
		}
		if in.SendConnectNote {
			r.ConnectNote = p.ConnectNote
		}
		records = append(records, r)
	}

	m := &funnel.Machine{
		Store:          funnel.DBStore{DB: db},
		Steps:          &campaignSteps{c: c},
		Log:            c.Log,
		MaxTransitions: c.MaxTransitions,
	}
	records, err = m.SortByLastUpdated(ctx, records)
	if err != nil {
		return nil, err
	}
	sum, err := m.ProcessBatch(ctx, records)
	c.Log.Info().
		Int("processed", sum.Processed).
		Int("transitions", sum.Transitions).
		Int("errors", sum.Errors).
		Bool("connection_limit", sum.ConnectionLimit).
		Msg("campaign batch done")
	if err != nil {
		return nil, err
	}
	return sum.Map(), nil
}

// campaignSteps adapts the automation client to funnel.Steps.
type campaignSteps struct {
	c *Campaign
}

func (s *campaignSteps) Enrich(ctx context.Context, rec *funnel.Record) (*linkedin.Snapshot, error) {
	return s.c.Auto.ScrapeProfile(ctx, rec.Ref())
}

func (s *campaignSteps) Connect(ctx context.Context, rec *funnel.Record) (linkedin.ConnectionStatus, error) {
	allowed, reason, err := s.c.Quota.Check(ctx, s.c.Handle, touchpoint.TypeConnect)
	if err != nil {
		return linkedin.ConnectionNone, err
	}
	if !allowed {
		return linkedin.ConnectionNone, fmt.Errorf("%w: %s", linkedin.ErrConnectionLimit, reason)
	}
	status, err := s.c.Auto.SendConnectionRequest(ctx, rec.Ref(), rec.ConnectNote)
	if err != nil {
		return status, err
	}
	if status == linkedin.ConnectionPending {
		if err := s.c.Quota.Increment(ctx, s.c.Handle, touchpoint.TypeConnect); err != nil {
			s.c.Log.Warn().Err(err).Msg("increment connection quota failed")
		}
	}
	return status, nil
}

func (s *campaignSteps) ConnectionStatus(ctx context.Context, rec *funnel.Record) (linkedin.ConnectionStatus, error) {
	return s.c.Auto.ConnectionStatus(ctx, rec.Ref())
}

func (s *campaignSteps) FollowUp(ctx context.Context, rec *funnel.Record) (linkedin.MessageStatus, error) {
	if rec.FollowupMessage == "" {
		return linkedin.MessageSkipped, nil
	}
	allowed, reason, err := s.c.Quota.Check(ctx, s.c.Handle, touchpoint.TypeDirectMessage)
	if err != nil {
		return "", err
	}
	if !allowed {
		s.c.Log.Info().Str("profile", rec.ID()).Str("reason", reason).Msg("follow-up deferred by quota")
		return linkedin.MessageSkipped, nil
	}
	status, err := s.c.Auto.SendMessage(ctx, rec.Ref(), rec.FollowupMessage)
	if err != nil {
		return status, err
	}
	if status == linkedin.MessageSent {
		if err := s.c.Quota.Increment(ctx, s.c.Handle, touchpoint.TypeDirectMessage); err != nil {
			s.c.Log.Warn().Err(err).Msg("increment message quota failed")
		}
	}
	return status, nil
}
