package funnel

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/repo"
)

// DBStore is a Store over one account's profile database.
type DBStore struct {
	DB *gorm.DB
}

func (s DBStore) Get(ctx context.Context, publicID string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, s.DB, publicID)
}

func (s DBStore) Save(ctx context.Context, publicID, url string, state domain.ProfileState, snapshot, raw map[string]any) error {
	var rawJSON datatypes.JSON
	if raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		rawJSON = b
	}
	return repo.SaveProfileEnrichment(ctx, s.DB, publicID, url, state, datatypes.JSONMap(snapshot), rawJSON)
}

func (s DBStore) SetState(ctx context.Context, publicID, url string, state domain.ProfileState) error {
	return repo.SetProfileState(ctx, s.DB, publicID, url, state)
}

func (s DBStore) UpdatedAt(ctx context.Context, ids []string) (map[string]time.Time, error) {
	return repo.ProfilesUpdatedAt(ctx, s.DB, ids)
}
