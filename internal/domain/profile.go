package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ProfileState is a position in the outreach funnel of one profile.
type ProfileState string

const (
	StateDiscovered ProfileState = "discovered"
	StateEnriched   ProfileState = "enriched"
	StatePending    ProfileState = "pending"
	StateConnected  ProfileState = "connected"
	StateCompleted  ProfileState = "completed"
	StateFailed     ProfileState = "failed"
)

// Terminal reports whether the funnel is finished for the profile.
func (s ProfileState) Terminal() bool { return s == StateCompleted || s == StateFailed }

// Valid reports whether s is a known funnel state.
func (s ProfileState) Valid() bool {
	switch s {
	case StateDiscovered, StateEnriched, StatePending, StateConnected, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Profile is a LinkedIn profile tracked in an account's own database.
// Rows are never deleted by the service.
type Profile struct {
	PublicIdentifier string            `json:"public_identifier" gorm:"type:varchar(255);primaryKey"`
	URL              string            `json:"url"               gorm:"type:text"`
	State            ProfileState      `json:"state"             gorm:"type:varchar(16);not null;default:'discovered';index"`
	Profile          datatypes.JSONMap `json:"profile,omitempty"`
	RawData          datatypes.JSON    `json:"raw_data,omitempty"`
	CloudSynced      bool              `json:"cloud_synced"      gorm:"not null;default:false"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"        gorm:"index"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }
