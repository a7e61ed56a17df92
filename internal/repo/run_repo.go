package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// RunFilter narrows run listings. Empty fields are ignored.
type RunFilter struct {
	Handle string
	Status domain.RunStatus
}

func (f RunFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Handle != "" {
		q = q.Where("handle = ?", f.Handle)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// RunOutcome carries the final columns written when a run finishes.
type RunOutcome struct {
	Status          domain.RunStatus
	Result          datatypes.JSONMap
	Error           *string
	ErrorScreenshot *string
	ConsoleLogs     datatypes.JSON
	CompletedAt     time.Time
	DurationMS      int64
}

// CreateRun inserts r as given. The caller supplies the run ID.
func CreateRun(ctx context.Context, db *gorm.DB, r *domain.Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// GetRun fetches a run by ID, or ErrNotFound.
func GetRun(ctx context.Context, db *gorm.DB, id string) (*domain.Run, error) {
	var r domain.Run
	if err := db.WithContext(ctx).Where("run_id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRuns returns the number of runs matching f.
func CountRuns(ctx context.Context, db *gorm.DB, f RunFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Run{})).Count(&total).Error
	return total, err
}

// ListRunsPage returns runs matching f, newest first.
func ListRunsPage(ctx context.Context, db *gorm.DB, f RunFilter, offset, limit int) ([]domain.Run, error) {
	var out []domain.Run
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListPendingRuns returns up to limit pending runs, oldest first.
func ListPendingRuns(ctx context.Context, db *gorm.DB, limit int) ([]domain.Run, error) {
	var out []domain.Run
	err := db.WithContext(ctx).
		Where("status = ?", domain.RunPending).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimRun moves a run from pending to running and stamps started_at.
// It reports false when the run was not pending (already claimed or finished).
func ClaimRun(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("run_id = ? AND status = ?", id, domain.RunPending).
		Updates(map[string]any{
			"status":     domain.RunRunning,
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkRunStarted re-stamps started_at of a running run.
func MarkRunStarted(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("run_id = ? AND status = ?", id, domain.RunRunning).
		Updates(map[string]any{"started_at": now, "updated_at": now}).Error
}

// FinishRun writes the outcome of a running run. A run that already left
// the running state is not overwritten and ErrNotFound is returned.
func FinishRun(ctx context.Context, db *gorm.DB, id string, out RunOutcome) error {
	updates := map[string]any{
		"status":           out.Status,
		"result":           out.Result,
		"error":            out.Error,
		"error_screenshot": out.ErrorScreenshot,
		"console_logs":     out.ConsoleLogs,
		"completed_at":     out.CompletedAt,
		"duration_ms":      out.DurationMS,
		"updated_at":       out.CompletedAt,
	}
	res := db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("run_id = ? AND status = ?", id, domain.RunRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleRunning returns running runs whose started_at is before cutoff.
func ListStaleRunning(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Run, error) {
	var out []domain.Run
	err := db.WithContext(ctx).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?", domain.RunRunning, cutoff).
		Order("started_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RequeueRun puts a running run back to pending and clears started_at.
func RequeueRun(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Run{}).
		Where("run_id = ? AND status = ?", id, domain.RunRunning).
		Updates(map[string]any{
			"status":     domain.RunPending,
			"started_at": nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
