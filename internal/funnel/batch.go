package funnel

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tbourn/go-outreach-backend/internal/linkedin"
)

// Summary reports what a batch did.
type Summary struct {
	Processed       int
	Transitions     int
	Skipped         int
	Errors          int
	Exhausted       int
	ConnectionLimit bool
	// States counts the last known state of every processed profile.
	States map[string]int
}

// Map returns the summary as a JSON-shaped map.
func (s Summary) Map() map[string]any {
	states := make(map[string]any, len(s.States))
	for k, v := range s.States {
		states[k] = v
	}
	return map[string]any{
		"processed":        s.Processed,
		"transitions":      s.Transitions,
		"skipped":          s.Skipped,
		"errors":           s.Errors,
		"exhausted":        s.Exhausted,
		"connection_limit": s.ConnectionLimit,
		"states":           states,
	}
}

// ProcessBatch takes each record as far as it can go before moving to the
// next. Hitting the connection limit turns the rest of the batch into
// observation mode (no new invitations). Any other failed action stops the
// batch and is returned along with the summary so far. A cancelled ctx
// stops between profiles.
func (m *Machine) ProcessBatch(ctx context.Context, records []Record) (Summary, error) {
	sum := Summary{States: map[string]int{}}
	limit := m.MaxTransitions
	if limit <= 0 {
		limit = DefaultMaxTransitions
	}
	allowConnect := true

	for i := range records {
		if ctx.Err() != nil {
			break
		}
		rec := &records[i]
		log := m.Log.With().Str("profile", rec.ID()).Logger()

		var failed error
		for n := 0; ; n++ {
			if n >= limit {
				log.Warn().Int("max_transitions", limit).Msg("transition limit reached, moving on")
				sum.Exhausted++
				break
			}
			next, err := m.Step(ctx, rec, allowConnect)
			if errors.Is(err, linkedin.ErrConnectionLimit) {
				log.Warn().Msg("connection limit reached, continuing without invitations")
				allowConnect = false
				sum.ConnectionLimit = true
				continue
			}
			if errors.Is(err, linkedin.ErrSkipProfile) || errors.Is(err, ErrNoIdentifier) {
				log.Info().Err(err).Msg("skipping profile")
				sum.Skipped++
				break
			}
			if err != nil {
				log.Error().Err(err).Msg("funnel step failed")
				sum.Errors++
				failed = fmt.Errorf("profile %s: %w", rec.ID(), err)
				break
			}
			if next == nil {
				break
			}
			rec = next
			sum.Transitions++
		}
		sum.Processed++
		if rec.State != "" {
			sum.States[string(rec.State)]++
		}
		if failed != nil {
			return sum, failed
		}
	}
	return sum, nil
}

// SortByLastUpdated orders records for a fair batch: profiles never seen
// first, then stored ones by oldest update. Order is otherwise preserved.
func (m *Machine) SortByLastUpdated(ctx context.Context, records []Record) ([]Record, error) {
	ids := make([]string, 0, len(records))
	for i := range records {
		if id := records[i].ID(); id != "" {
			ids = append(ids, id)
		}
	}
	seen, err := m.Store.UpdatedAt(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		ta, okA := seen[a.ID()]
		tb, okB := seen[b.ID()]
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return -1
		case !okB:
			return 1
		default:
			return ta.Compare(tb)
		}
	})
	return out, nil
}
