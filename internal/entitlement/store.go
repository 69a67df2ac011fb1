// Package entitlement persists the subscription state backing limit enforcement.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreamreel/dreamreel-api/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound indicates no subscription row matched the lookup.
var ErrNotFound = errors.New("entitlement: subscription not found")

// Store reads and mutates subscription rows.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Update carries the fields applied by a payment-provider lifecycle event.
type Update struct {
	UserID         string
	Tier           string
	Active         bool
	Status         string
	CustomerID     string
	SubscriptionID string
	ExpiresAt      *time.Time
}

// Current returns the account's current subscription.
//
// The current row is the most recently created one regardless of its active
// flag. Accounts without any row get a free, active row persisted on first
// access.
func (s *Store) Current(ctx context.Context, userID string) (models.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return models.Subscription{}, fmt.Errorf("entitlement: empty user id")
	}

	var sub models.Subscription
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if errFind == nil {
		return sub, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.Subscription{}, fmt.Errorf("entitlement: query subscription: %w", errFind)
	}

	sub = models.Subscription{
		UserID: userID,
		Tier:   models.TierFree,
		Active: true,
	}
	if errCreate := s.db.WithContext(ctx).Create(&sub).Error; errCreate != nil {
		return models.Subscription{}, fmt.Errorf("entitlement: create default subscription: %w", errCreate)
	}
	return sub, nil
}

// ApplyUpdate upserts the subscription row for an account, last write wins.
func (s *Store) ApplyUpdate(ctx context.Context, update Update) error {
	if strings.TrimSpace(update.UserID) == "" {
		return fmt.Errorf("entitlement: update missing user id")
	}

	var existing models.Subscription
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", update.UserID).
		Order("created_at DESC").
		First(&existing).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("entitlement: query subscription: %w", errFind)
	}

	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		row := models.Subscription{
			UserID:               update.UserID,
			Tier:                 update.Tier,
			Active:               update.Active,
			Status:               update.Status,
			StripeCustomerID:     update.CustomerID,
			StripeSubscriptionID: update.SubscriptionID,
			ExpiresAt:            update.ExpiresAt,
		}
		if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("entitlement: insert subscription: %w", errCreate)
		}
		return nil
	}

	updates := map[string]any{
		"tier":                   update.Tier,
		"active":                 update.Active,
		"status":                 update.Status,
		"stripe_customer_id":     update.CustomerID,
		"stripe_subscription_id": update.SubscriptionID,
		"expires_at":             update.ExpiresAt,
	}
	if errUpdate := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; errUpdate != nil {
		return fmt.Errorf("entitlement: update subscription: %w", errUpdate)
	}
	return nil
}

// Cancel deactivates the subscription row holding the provider subscription ref.
//
// Returns ErrNotFound when no row matches; callers treat that as a no-op.
func (s *Store) Cancel(ctx context.Context, subscriptionRef string) error {
	if strings.TrimSpace(subscriptionRef) == "" {
		return ErrNotFound
	}

	result := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", subscriptionRef).
		Updates(map[string]any{
			"active": false,
			"status": "canceled",
		})
	if result.Error != nil {
		return fmt.Errorf("entitlement: cancel subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CustomerID returns the payment-provider customer ref stored for an account.
func (s *Store) CustomerID(ctx context.Context, userID string) (string, error) {
	var sub models.Subscription
	errFind := s.db.WithContext(ctx).
		Select("stripe_customer_id").
		Where("user_id = ? AND stripe_customer_id <> ''", userID).
		Order("created_at DESC").
		First(&sub).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("entitlement: query customer id: %w", errFind)
	}
	return sub.StripeCustomerID, nil
}
