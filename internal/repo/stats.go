package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// RunsStats reports how many runs match f and the latest updated_at among
// them, nil when none match. Every status change bumps updated_at, so the
// pair identifies a version of the listing for ETags.
func RunsStats(ctx context.Context, db *gorm.DB, f RunFilter) (int64, *time.Time, error) {
	var count int64
	if err := f.apply(db.WithContext(ctx).Model(&domain.Run{})).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	// ORDER BY instead of MAX(): SQLite returns MAX(datetime) as TEXT.
	var latest domain.Run
	err := f.apply(db.WithContext(ctx).Model(&domain.Run{})).
		Select("updated_at").Order("updated_at DESC").Take(&latest).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &latest.UpdatedAt, nil
}
