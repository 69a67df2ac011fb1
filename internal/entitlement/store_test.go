package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreamreel/dreamreel-api/internal/db"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewStore(conn)
}

func TestCurrentSynthesizesFreeDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub, errCurrent := store.Current(ctx, "user-1")
	if errCurrent != nil {
		t.Fatalf("current: %v", errCurrent)
	}
	if sub.Tier != models.TierFree || !sub.Active {
		t.Fatalf("default subscription = %+v, want free/active", sub)
	}

	var count int64
	if errCount := store.db.Model(&models.Subscription{}).Where("user_id = ?", "user-1").Count(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("persisted %d rows, want exactly 1", count)
	}

	// A second access must reuse the persisted row.
	again, errAgain := store.Current(ctx, "user-1")
	if errAgain != nil {
		t.Fatalf("current again: %v", errAgain)
	}
	if again.ID != sub.ID {
		t.Fatalf("second access created a new row: %d != %d", again.ID, sub.ID)
	}
}

func TestCurrentPrefersNewestRowRegardlessOfActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := models.Subscription{UserID: "user-2", Tier: models.TierPremium, Active: true, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	if errCreate := store.db.Create(&old).Error; errCreate != nil {
		t.Fatalf("seed old row: %v", errCreate)
	}
	newer := models.Subscription{UserID: "user-2", Tier: models.TierBasic, Active: false, CreatedAt: time.Now().UTC()}
	if errCreate := store.db.Create(&newer).Error; errCreate != nil {
		t.Fatalf("seed newer row: %v", errCreate)
	}

	sub, errCurrent := store.Current(ctx, "user-2")
	if errCurrent != nil {
		t.Fatalf("current: %v", errCurrent)
	}
	if sub.Tier != models.TierBasic || sub.Active {
		t.Fatalf("current = %+v, want newest (basic, inactive) row", sub)
	}
}

func TestApplyUpdateInsertsAndOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	expires := time.Now().UTC().Add(30 * 24 * time.Hour)

	errApply := store.ApplyUpdate(ctx, Update{
		UserID:         "user-3",
		Tier:           models.TierBasic,
		Active:         true,
		Status:         "trialing",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		ExpiresAt:      &expires,
	})
	if errApply != nil {
		t.Fatalf("apply insert: %v", errApply)
	}

	errApply = store.ApplyUpdate(ctx, Update{
		UserID:         "user-3",
		Tier:           models.TierPremium,
		Active:         true,
		Status:         "active",
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		ExpiresAt:      &expires,
	})
	if errApply != nil {
		t.Fatalf("apply overwrite: %v", errApply)
	}

	sub, errCurrent := store.Current(ctx, "user-3")
	if errCurrent != nil {
		t.Fatalf("current: %v", errCurrent)
	}
	if sub.Tier != models.TierPremium || sub.Status != "active" {
		t.Fatalf("subscription = %+v, want premium/active", sub)
	}

	var count int64
	if errCount := store.db.Model(&models.Subscription{}).Where("user_id = ?", "user-3").Count(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("upsert produced %d rows, want 1", count)
	}
}

func TestCancelUnknownRefReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	errCancel := store.Cancel(context.Background(), "sub_missing")
	if !errors.Is(errCancel, ErrNotFound) {
		t.Fatalf("cancel = %v, want ErrNotFound", errCancel)
	}

	var count int64
	if errCount := store.db.Model(&models.Subscription{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count rows: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("cancel created %d rows", count)
	}
}

func TestCancelDeactivatesMatchingRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	errApply := store.ApplyUpdate(ctx, Update{
		UserID:         "user-4",
		Tier:           models.TierBasic,
		Active:         true,
		Status:         "active",
		SubscriptionID: "sub_4",
	})
	if errApply != nil {
		t.Fatalf("apply: %v", errApply)
	}

	if errCancel := store.Cancel(ctx, "sub_4"); errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}

	sub, errCurrent := store.Current(ctx, "user-4")
	if errCurrent != nil {
		t.Fatalf("current: %v", errCurrent)
	}
	if sub.Active || sub.Status != "canceled" {
		t.Fatalf("subscription = %+v, want inactive/canceled", sub)
	}
}

func TestCustomerID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, errLookup := store.CustomerID(ctx, "user-5"); !errors.Is(errLookup, ErrNotFound) {
		t.Fatalf("lookup = %v, want ErrNotFound", errLookup)
	}

	errApply := store.ApplyUpdate(ctx, Update{UserID: "user-5", Tier: models.TierBasic, Active: true, CustomerID: "cus_5"})
	if errApply != nil {
		t.Fatalf("apply: %v", errApply)
	}

	id, errLookup := store.CustomerID(ctx, "user-5")
	if errLookup != nil {
		t.Fatalf("lookup: %v", errLookup)
	}
	if id != "cus_5" {
		t.Fatalf("customer id = %q, want cus_5", id)
	}
}
