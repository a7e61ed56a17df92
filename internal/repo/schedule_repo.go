package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// CreateSchedule inserts s as given. The caller supplies the schedule ID.
func CreateSchedule(ctx context.Context, db *gorm.DB, s *domain.Schedule) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return db.WithContext(ctx).Create(s).Error
}

// GetSchedule fetches a schedule by ID, or ErrNotFound.
func GetSchedule(ctx context.Context, db *gorm.DB, id string) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := db.WithContext(ctx).Where("schedule_id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSchedules returns schedules newest first, optionally for one handle.
func ListSchedules(ctx context.Context, db *gorm.DB, handle string) ([]domain.Schedule, error) {
	var out []domain.Schedule
	q := db.WithContext(ctx).Order("created_at desc")
	if handle != "" {
		q = q.Where("handle = ?", handle)
	}
	err := q.Find(&out).Error
	return out, err
}

// DeleteSchedule removes a schedule. Returns ErrNotFound when missing.
func DeleteSchedule(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("schedule_id = ?", id).Delete(&domain.Schedule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSchedule writes the given columns. Returns ErrNotFound when missing.
func UpdateSchedule(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Schedule{}).
		Where("schedule_id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDueSchedules returns active schedules with next_run_at <= now, oldest due first.
func ListDueSchedules(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Schedule, error) {
	var out []domain.Schedule
	err := db.WithContext(ctx).
		Where("active = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at asc").
		Find(&out).Error
	return out, err
}
