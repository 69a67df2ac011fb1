// Package limits combines entitlement and usage state into admission decisions.
package limits

import (
	"context"
	"fmt"

	"github.com/dreamreel/dreamreel-api/internal/entitlement"
	"github.com/dreamreel/dreamreel-api/internal/identity"
	"github.com/dreamreel/dreamreel-api/internal/ledger"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/tier"
)

// Denial reasons.
const (
	// ReasonInactive denies paid-tier accounts whose subscription lapsed.
	ReasonInactive = "subscription inactive"
	// ReasonLimitReached denies accounts at or over their daily limit.
	ReasonLimitReached = "daily limit reached"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed  bool
	Tier     string
	Active   bool
	Features tier.Features

	// Set on denial.
	Reason string
	Used   int64
	Limit  int64
}

// Allow builds an admission decision.
func Allow(tierName string, features tier.Features) Decision {
	return Decision{Allowed: true, Tier: tierName, Active: true, Features: features}
}

// Deny builds a rejection decision carrying client-displayable counters.
func Deny(tierName string, active bool, features tier.Features, reason string, used, limit int64) Decision {
	return Decision{Tier: tierName, Active: active, Features: features, Reason: reason, Used: used, Limit: limit}
}

// Enforcer admits or rejects generation requests.
type Enforcer struct {
	entitlements *entitlement.Store
	usage        *ledger.Ledger
	table        tier.Table
}

// NewEnforcer constructs an Enforcer over the given stores and tier table.
func NewEnforcer(entitlements *entitlement.Store, usage *ledger.Ledger, table tier.Table) *Enforcer {
	return &Enforcer{entitlements: entitlements, usage: usage, table: table}
}

// Admit decides whether an account may run one more generation of the given kind.
//
// The check is best-effort: it is not atomic with the post-generation
// increment, so concurrent requests can transiently exceed the limit.
func (e *Enforcer) Admit(ctx context.Context, account identity.Account, kind string) (Decision, error) {
	sub, errCurrent := e.entitlements.Current(ctx, account.ID)
	if errCurrent != nil {
		return Decision{}, fmt.Errorf("limits: resolve entitlement: %w", errCurrent)
	}

	features := e.table.Lookup(sub.Tier)
	if sub.Tier != models.TierFree && !sub.Active {
		return Deny(sub.Tier, sub.Active, features, ReasonInactive, 0, 0), nil
	}

	limit := int64(features.Limit(kind))
	used, errCount := e.usage.Count(ctx, account.ID, kind, ledger.Today())
	if errCount != nil {
		return Decision{}, fmt.Errorf("limits: read usage: %w", errCount)
	}

	if used >= limit {
		return Deny(sub.Tier, sub.Active, features, ReasonLimitReached, used, limit), nil
	}
	return Allow(sub.Tier, features), nil
}
