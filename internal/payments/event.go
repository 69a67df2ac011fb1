package payments

import (
	"encoding/json"
	"fmt"
)

// Lifecycle event types handled by the synchronizer.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Subscription statuses that grant access.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

// Event is one payment-provider webhook event.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// SubscriptionObject is the subscription payload inside lifecycle events.
type SubscriptionObject struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ParseEvent decodes a raw webhook payload into an Event.
func ParseEvent(payload []byte) (Event, error) {
	var event Event
	if errDecode := json.Unmarshal(payload, &event); errDecode != nil {
		return Event{}, fmt.Errorf("payments: decode event: %w", errDecode)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("payments: event missing type")
	}
	return event, nil
}

// Subscription decodes the event's subscription object.
func (e Event) Subscription() (SubscriptionObject, error) {
	var sub SubscriptionObject
	if errDecode := json.Unmarshal(e.Data.Object, &sub); errDecode != nil {
		return SubscriptionObject{}, fmt.Errorf("payments: decode subscription object: %w", errDecode)
	}
	return sub, nil
}

// PriceID returns the first subscription item's price ID, empty when absent.
func (s SubscriptionObject) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}
