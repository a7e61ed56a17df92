// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// model.
//
// Functions follow the "thin repository" approach: no business logic, only
// persistence and query composition. Quota and breaker rules live in the
// quota package, which reads and writes whole rows through these helpers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertAccount inserts the account or, when the handle already exists,
// overwrites its configuration columns. Quota counters and breaker state of
// an existing row are left untouched.
func UpsertAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "handle"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "password", "active", "proxy", "booking_link",
				"daily_connections", "daily_messages", "updated_at",
			}),
		}).
		Create(a).Error
}

// GetAccount fetches a single account by handle, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, handle string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("handle = ?", handle).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns accounts ordered by handle, optionally only active ones.
func ListAccounts(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Account, error) {
	var out []domain.Account
	q := db.WithContext(ctx).Order("handle asc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&out).Error
	return out, err
}

// SaveAccount writes every column of a, stamping UpdatedAt.
func SaveAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(a).Error
}

// DeleteAccount removes the account row. Returns ErrNotFound when missing.
func DeleteAccount(ctx context.Context, db *gorm.DB, handle string) error {
	res := db.WithContext(ctx).Where("handle = ?", handle).Delete(&domain.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResumeAccount clears the breaker: paused=false, reason cleared and the
// consecutive failure count reset. Returns ErrNotFound when missing.
func ResumeAccount(ctx context.Context, db *gorm.DB, handle string) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("handle = ?", handle).
		Updates(map[string]any{
			"paused":               false,
			"paused_reason":        nil,
			"consecutive_failures": 0,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
