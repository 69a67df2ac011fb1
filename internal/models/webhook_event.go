package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent retains one payment-provider webhook delivery for auditing.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID string `gorm:"type:text;not null;uniqueIndex"` // Provider-assigned event ID.
	Type    string `gorm:"type:text;not null;index"`       // Provider event type string.

	Processed bool   `gorm:"not null;default:false"` // Whether dispatch completed without error.
	Error     string `gorm:"type:text"`              // Dispatch error message, when any.

	Payload datatypes.JSON `gorm:"type:jsonb"` // Raw event payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Delivery timestamp.
}
