package domain

import (
	"time"

	"gorm.io/datatypes"
)

// RunStatus is the lifecycle status of a Run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RunStatus) Terminal() bool { return s == RunCompleted || s == RunFailed }

// UnknownTouchpointType is stored when a run input carries no type.
const UnknownTouchpointType = "unknown"

// Run is one execution of a single touchpoint for a single account.
// Status moves strictly pending -> running -> completed|failed.
type Run struct {
	RunID           string            `json:"run_id"           gorm:"type:char(36);primaryKey"`
	Handle          string            `json:"handle"           gorm:"type:varchar(64);not null;index:idx_runs_handle_created,priority:1"`
	TouchpointType  string            `json:"touchpoint_type"  gorm:"type:varchar(32);not null"`
	TouchpointInput datatypes.JSONMap `json:"touchpoint_input" gorm:"not null"`
	Status          RunStatus         `json:"status"           gorm:"type:varchar(16);not null;index;check:status IN ('pending','running','completed','failed')"`

	Result          datatypes.JSONMap `json:"result,omitempty"`
	Error           *string           `json:"error,omitempty"`
	ErrorScreenshot *string           `json:"error_screenshot,omitempty"`
	ConsoleLogs     datatypes.JSON    `json:"console_logs,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  *int64     `json:"duration_ms,omitempty"`

	Tags datatypes.JSONMap `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"index;index:idx_runs_handle_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Run.
func (Run) TableName() string { return "runs" }
