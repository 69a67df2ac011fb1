// Package billing consumes payment-provider lifecycle events and keeps the
// entitlement store consistent.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreamreel/dreamreel-api/internal/entitlement"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/payments"
	"github.com/dreamreel/dreamreel-api/internal/tier"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerResolver resolves payment-provider customer records.
type CustomerResolver interface {
	Customer(ctx context.Context, customerID string) (payments.Customer, error)
}

// Deduper remembers processed event IDs so provider retries are not reapplied.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Synchronizer applies lifecycle events to the entitlement store.
type Synchronizer struct {
	store       *entitlement.Store
	customers   CustomerResolver
	priceToTier map[string]string
	dedup       Deduper
	db          *gorm.DB
}

// NewSynchronizer constructs a Synchronizer. dedup may be nil, in which case
// every delivery is processed; db may be nil to skip delivery retention.
func NewSynchronizer(store *entitlement.Store, customers CustomerResolver, priceToTier map[string]string, dedup Deduper, db *gorm.DB) *Synchronizer {
	return &Synchronizer{
		store:       store,
		customers:   customers,
		priceToTier: priceToTier,
		dedup:       dedup,
		db:          db,
	}
}

// Handle dispatches one verified event by kind.
//
// Unknown event kinds and cancellations for unknown subscription refs are
// logged and ignored; any other failure is returned so the transport layer
// can surface a 500 and let the provider retry.
func (s *Synchronizer) Handle(ctx context.Context, event payments.Event, payload []byte) error {
	if s.dedup != nil && event.ID != "" {
		seen, errSeen := s.dedup.Seen(ctx, event.ID)
		if errSeen != nil {
			log.WithError(errSeen).Warn("webhook dedup check failed, processing anyway")
		} else if seen {
			log.WithField("event_id", event.ID).Info("skipping already-processed webhook event")
			return nil
		}
	}

	errDispatch := s.dispatch(ctx, event)
	s.record(ctx, event, payload, errDispatch)
	if errDispatch != nil {
		return errDispatch
	}

	if s.dedup != nil && event.ID != "" {
		if errMark := s.dedup.Mark(ctx, event.ID); errMark != nil {
			log.WithError(errMark).Warn("webhook dedup mark failed")
		}
	}
	return nil
}

func (s *Synchronizer) dispatch(ctx context.Context, event payments.Event) error {
	switch event.Type {
	case payments.EventSubscriptionCreated, payments.EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case payments.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case payments.EventCheckoutCompleted:
		// Entitlement arrives via the subscription event that follows.
		log.WithField("event_id", event.ID).Info("checkout session completed")
		return nil
	default:
		log.WithFields(log.Fields{"event_id": event.ID, "type": event.Type}).Info("ignoring unhandled webhook event type")
		return nil
	}
}

// handleSubscriptionUpdated upserts entitlement state from a created/updated event.
func (s *Synchronizer) handleSubscriptionUpdated(ctx context.Context, event payments.Event) error {
	sub, errSub := event.Subscription()
	if errSub != nil {
		return errSub
	}

	customer, errCustomer := s.customers.Customer(ctx, sub.Customer)
	if errCustomer != nil {
		return fmt.Errorf("billing: resolve customer %s: %w", sub.Customer, errCustomer)
	}
	if customer.Deleted {
		log.WithField("customer", sub.Customer).Warn("customer deleted, skipping subscription update")
		return nil
	}

	userID := strings.TrimSpace(customer.Metadata["userId"])
	if userID == "" {
		log.WithField("customer", sub.Customer).Warn("customer metadata missing userId, skipping subscription update")
		return nil
	}

	tierName := tier.FromPriceID(s.priceToTier, sub.PriceID())
	active := sub.Status == payments.StatusActive || sub.Status == payments.StatusTrialing

	var expiresAt *time.Time
	if sub.CurrentPeriodEnd > 0 {
		ts := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		expiresAt = &ts
	}

	errApply := s.store.ApplyUpdate(ctx, entitlement.Update{
		UserID:         userID,
		Tier:           tierName,
		Active:         active,
		Status:         sub.Status,
		CustomerID:     sub.Customer,
		SubscriptionID: sub.ID,
		ExpiresAt:      expiresAt,
	})
	if errApply != nil {
		return errApply
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"tier":    tierName,
		"active":  active,
		"status":  sub.Status,
	}).Info("subscription updated")
	return nil
}

// handleSubscriptionDeleted deactivates the matching subscription row.
func (s *Synchronizer) handleSubscriptionDeleted(ctx context.Context, event payments.Event) error {
	sub, errSub := event.Subscription()
	if errSub != nil {
		return errSub
	}

	errCancel := s.store.Cancel(ctx, sub.ID)
	if errors.Is(errCancel, entitlement.ErrNotFound) {
		log.WithField("subscription", sub.ID).Warn("cancellation for unknown subscription, ignoring")
		return nil
	}
	if errCancel != nil {
		return errCancel
	}

	log.WithField("subscription", sub.ID).Info("subscription canceled")
	return nil
}

// record retains the delivery for auditing; failures only log.
func (s *Synchronizer) record(ctx context.Context, event payments.Event, payload []byte, dispatchErr error) {
	if s.db == nil || event.ID == "" {
		return
	}
	row := models.WebhookEvent{
		EventID:   event.ID,
		Type:      event.Type,
		Processed: dispatchErr == nil,
		Payload:   datatypes.JSON(payload),
	}
	if dispatchErr != nil {
		row.Error = dispatchErr.Error()
	}
	errCreate := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"processed", "error"}),
		}).
		Create(&row).Error
	if errCreate != nil {
		log.WithError(errCreate).Warn("failed to record webhook event")
	}
}
