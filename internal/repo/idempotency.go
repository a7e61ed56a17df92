package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// ErrDuplicate is returned when (client_id, scope, key) is already recorded.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the live record for (clientID, scope, key).
// Expired records read as ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where(&domain.Idempotency{ClientID: clientID, Scope: scope, Key: key}, "ClientID", "Scope", "Key").
		Where("expires_at > ?", now).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency records that key produced resourceID with status, valid
// for ttl from now. An existing record, live or expired, is left in place and
// ErrDuplicate returned; PurgeIdempotency clears expired ones.
func CreateIdempotency(ctx context.Context, db *gorm.DB, clientID, scope, key, resourceID string, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicate
	}
	return rec, nil
}

// PurgeIdempotency deletes records expired at now and reports how many.
func PurgeIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
