package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Schedule periodically creates Runs from a stored touchpoint input
// according to a standard five-field cron expression.
type Schedule struct {
	ScheduleID      string            `json:"schedule_id"      gorm:"type:char(36);primaryKey"`
	Handle          string            `json:"handle"           gorm:"type:varchar(64);not null;index"`
	TouchpointType  string            `json:"touchpoint_type"  gorm:"type:varchar(32);not null"`
	TouchpointInput datatypes.JSONMap `json:"touchpoint_input" gorm:"not null"`
	Cron            string            `json:"cron"             gorm:"type:varchar(128);not null"`
	NextRunAt       *time.Time        `json:"next_run_at,omitempty" gorm:"index:idx_schedules_due,priority:2"`
	Active          bool              `json:"active"           gorm:"not null;index:idx_schedules_due,priority:1"`
	Tags            datatypes.JSONMap `json:"tags,omitempty"`

	LastRunID *string    `json:"last_run_id,omitempty" gorm:"type:char(36)"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Schedule.
func (Schedule) TableName() string { return "schedules" }
