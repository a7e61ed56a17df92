// Package domain defines the persistence models for outreach accounts, runs,
// schedules and the per-account profile funnel. These types are mapped with
// GORM and shared across the repository, service and HTTP layers.
package domain

import "time"

// Default daily ceilings applied when an account is created without limits.
const (
	DefaultDailyConnections = 50
	DefaultDailyMessages    = 20
)

// Account is a LinkedIn identity the service acts on behalf of. It carries
// credentials, daily quota counters and the consecutive-failure breaker.
//
// Counters are only meaningful relative to QuotaResetAt: once the reset
// instant has passed they are zeroed before any quota decision.
type Account struct {
	Handle   string  `json:"handle"       gorm:"type:varchar(64);primaryKey"`
	Username string  `json:"username"     gorm:"type:varchar(255);not null"`
	Password string  `json:"-"            gorm:"type:varchar(255);not null"`
	Active   bool    `json:"active"       gorm:"not null"`
	Proxy    *string `json:"proxy,omitempty"`

	BookingLink *string `json:"booking_link,omitempty"`

	DailyConnections int `json:"daily_connections" gorm:"not null"`
	DailyMessages    int `json:"daily_messages"    gorm:"not null"`

	ConnectionsToday int        `json:"connections_today" gorm:"not null;default:0"`
	MessagesToday    int        `json:"messages_today"    gorm:"not null;default:0"`
	PostsToday       int        `json:"posts_today"       gorm:"not null;default:0"`
	QuotaResetAt     *time.Time `json:"quota_reset_at,omitempty"`

	ConsecutiveFailures int     `json:"consecutive_failures" gorm:"not null;default:0"`
	Paused              bool    `json:"paused"               gorm:"not null;default:false"`
	PausedReason        *string `json:"paused_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }
