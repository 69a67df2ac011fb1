package models

import "time"

// Resource kinds tracked by the usage ledger.
const (
	// KindImage counts image generations.
	KindImage = "image"
	// KindVideo counts video generations.
	KindVideo = "video"
)

// UsageCounter tracks generations for one account, resource kind, and UTC day.
//
// At most one row exists per (user_id, kind, date); the count only increases.
type UsageCounter struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;uniqueIndex:ux_usage_user_kind_date,priority:1"` // Identity-provider account ID.
	Kind   string `gorm:"type:text;not null;uniqueIndex:ux_usage_user_kind_date,priority:2"` // Resource kind: image or video.
	Date   string `gorm:"type:text;not null;uniqueIndex:ux_usage_user_kind_date,priority:3"` // UTC calendar day, YYYY-MM-DD.

	Count int64 `gorm:"not null;default:0"` // Generations recorded for the day.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
