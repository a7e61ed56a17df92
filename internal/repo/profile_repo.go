package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// GetProfile fetches a profile by public identifier, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, publicID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("public_identifier = ?", publicID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfileEnrichment stores the scraped snapshot and raw payload and moves
// the row to state, inserting it when it does not exist yet.
func SaveProfileEnrichment(ctx context.Context, db *gorm.DB, publicID, url string, state domain.ProfileState, snapshot datatypes.JSONMap, raw datatypes.JSON) error {
	now := time.Now().UTC()
	p := &domain.Profile{
		PublicIdentifier: publicID,
		URL:              url,
		State:            state,
		Profile:          snapshot,
		RawData:          raw,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "public_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{"url", "state", "profile", "raw_data", "updated_at"}),
		}).
		Create(p).Error
}

// SetProfileState moves a profile to state, inserting a bare row when needed.
func SetProfileState(ctx context.Context, db *gorm.DB, publicID, url string, state domain.ProfileState) error {
	now := time.Now().UTC()
	p := &domain.Profile{
		PublicIdentifier: publicID,
		URL:              url,
		State:            state,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "public_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
		}).
		Create(p).Error
}

// ProfilesUpdatedAt returns updated_at for the known identifiers among ids.
func ProfilesUpdatedAt(ctx context.Context, db *gorm.DB, ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		PublicIdentifier string
		UpdatedAt        time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Select("public_identifier", "updated_at").
		Where("public_identifier IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PublicIdentifier] = r.UpdatedAt
	}
	return out, nil
}

// CountProfiles returns the number of profiles, optionally in one state.
func CountProfiles(ctx context.Context, db *gorm.DB, state domain.ProfileState) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Profile{})
	if state != "" {
		q = q.Where("state = ?", state)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListProfilesPage returns profiles, least recently updated first.
func ListProfilesPage(ctx context.Context, db *gorm.DB, state domain.ProfileState, offset, limit int) ([]domain.Profile, error) {
	var out []domain.Profile
	q := db.WithContext(ctx).Order("updated_at asc")
	if state != "" {
		q = q.Where("state = ?", state)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
