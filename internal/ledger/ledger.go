// Package ledger tracks per-account, per-day generation counters.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreamreel/dreamreel-api/internal/models"
	"gorm.io/gorm"
)

// Ledger reads and increments daily usage counters.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger backed by GORM.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Today returns the current UTC calendar day as YYYY-MM-DD.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// Count returns the recorded count for a key, 0 when no row exists.
func (l *Ledger) Count(ctx context.Context, userID, kind, date string) (int64, error) {
	var counter models.UsageCounter
	errFind := l.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND date = ?", userID, kind, date).
		First(&counter).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger: query counter: %w", errFind)
	}
	return counter.Count, nil
}

// Increment adds one generation to the counter for a key.
//
// This is a read-then-write sequence without a surrounding transaction;
// concurrent increments for the same key can under-count. Enforcement is
// best-effort, so the race is accepted.
func (l *Ledger) Increment(ctx context.Context, userID, kind, date string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("ledger: empty user id")
	}

	var counter models.UsageCounter
	errFind := l.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND date = ?", userID, kind, date).
		First(&counter).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("ledger: query counter: %w", errFind)
		}
		row := models.UsageCounter{UserID: userID, Kind: kind, Date: date, Count: 1}
		if errCreate := l.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
			return fmt.Errorf("ledger: insert counter: %w", errCreate)
		}
		return nil
	}

	if errUpdate := l.db.WithContext(ctx).
		Model(&models.UsageCounter{}).
		Where("id = ?", counter.ID).
		Update("count", counter.Count+1).Error; errUpdate != nil {
		return fmt.Errorf("ledger: update counter: %w", errUpdate)
	}
	return nil
}
