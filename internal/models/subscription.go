package models

import "time"

// Subscription tiers.
const (
	// TierFree is the default tier for accounts without a paid subscription.
	TierFree = "free"
	// TierBasic is the entry-level paid tier.
	TierBasic = "basic"
	// TierPremium is the top paid tier.
	TierPremium = "premium"
)

// Subscription mirrors payment-provider subscription state for one account.
//
// Multiple historical rows may exist per account; the current one is the most
// recently created row regardless of its active flag.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;index"` // Identity-provider account ID.

	Tier   string `gorm:"type:text;not null;default:'free'"` // Subscription tier name.
	Active bool   `gorm:"not null;default:true"`             // Whether the subscription grants paid features.
	Status string `gorm:"type:text"`                         // Raw payment-provider status string.

	StripeCustomerID     string `gorm:"type:text;index"` // Payment-provider customer reference.
	StripeSubscriptionID string `gorm:"type:text;index"` // Payment-provider subscription reference.

	ExpiresAt *time.Time // End of the current billing period, when known.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
