package billing

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	defaultRetentionDays     = 90
	defaultDeleteBatchSize   = 5000
	maxDeleteBatchesPerSweep = 200
)

// RetentionCleaner periodically deletes old rows from the webhook_events table.
type RetentionCleaner struct {
	db            *gorm.DB
	interval      time.Duration
	retentionDays int
	batchSize     int
}

// NewRetentionCleaner constructs a cleaner. retentionDays <= 0 selects the
// default; a nil db disables the cleaner.
func NewRetentionCleaner(db *gorm.DB, retentionDays int) *RetentionCleaner {
	if db == nil {
		return nil
	}
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &RetentionCleaner{
		db:            db,
		interval:      defaultRetentionInterval,
		retentionDays: retentionDays,
		batchSize:     defaultDeleteBatchSize,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *RetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.Infof("webhook retention cleaner started (interval=%s retention_days=%d)", c.interval, c.retentionDays)
}

func (c *RetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.SweepOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// SweepOnce deletes expired deliveries in bounded batches.
func (c *RetentionCleaner) SweepOnce(ctx context.Context) int64 {
	if c == nil || c.db == nil {
		return 0
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerSweep; i++ {
		if ctx.Err() != nil {
			return deletedTotal
		}
		n, errDelete := c.deleteBatch(ctx, cutoff)
		if errDelete != nil {
			log.WithError(errDelete).Warn("webhook retention cleaner: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("webhook retention cleaner: deleted %d rows (cutoff=%s)", deletedTotal, cutoff.Format(time.RFC3339))
	}
	return deletedTotal
}

func (c *RetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	// A limited subquery keeps each delete short and avoids table locks.
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM webhook_events
		WHERE id IN (
			SELECT id FROM webhook_events
			WHERE created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, cutoff, c.batchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
