// Package tier defines the feature limits attached to each subscription tier.
//
// The table here is the single source of truth for limit enforcement, the
// subscription summary endpoint, and the public plans endpoint. Configuration
// may replace it wholesale, but partial or inconsistent overrides are rejected
// at startup.
package tier

import (
	"fmt"
	"sort"

	"github.com/dreamreel/dreamreel-api/internal/models"
)

// Features lists the capabilities granted by one subscription tier.
type Features struct {
	MaxImagesPerDay       int  `json:"maxImagesPerDay" yaml:"max-images-per-day"`
	MaxVideosPerDay       int  `json:"maxVideosPerDay" yaml:"max-videos-per-day"`
	MaxVideoLengthSeconds int  `json:"maxVideoLength" yaml:"max-video-length-seconds"`
	HighQualityGeneration bool `json:"highQualityGeneration" yaml:"high-quality-generation"`
}

// Table maps tier names to their features.
type Table map[string]Features

// Default returns the built-in tier feature table.
func Default() Table {
	return Table{
		models.TierFree:    {MaxImagesPerDay: 3, MaxVideosPerDay: 1, MaxVideoLengthSeconds: 5, HighQualityGeneration: false},
		models.TierBasic:   {MaxImagesPerDay: 10, MaxVideosPerDay: 5, MaxVideoLengthSeconds: 15, HighQualityGeneration: false},
		models.TierPremium: {MaxImagesPerDay: 30, MaxVideosPerDay: 15, MaxVideoLengthSeconds: 30, HighQualityGeneration: true},
	}
}

// Validate checks that the table covers every known tier with sane limits.
func (t Table) Validate() error {
	required := []string{models.TierFree, models.TierBasic, models.TierPremium}
	for _, name := range required {
		features, ok := t[name]
		if !ok {
			return fmt.Errorf("tier: table missing tier %q", name)
		}
		if features.MaxImagesPerDay <= 0 || features.MaxVideosPerDay <= 0 || features.MaxVideoLengthSeconds <= 0 {
			return fmt.Errorf("tier: tier %q has non-positive limits", name)
		}
	}
	var extra []string
	for name := range t {
		switch name {
		case models.TierFree, models.TierBasic, models.TierPremium:
		default:
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("tier: unknown tiers in table: %v", extra)
	}
	return nil
}

// Lookup returns the features for a tier, falling back to free for unknown names.
func (t Table) Lookup(name string) Features {
	if features, ok := t[name]; ok {
		return features
	}
	return t[models.TierFree]
}

// Limit returns the daily limit for a resource kind within one tier.
func (f Features) Limit(kind string) int {
	if kind == models.KindVideo {
		return f.MaxVideosPerDay
	}
	return f.MaxImagesPerDay
}

// FromPriceID maps a payment-provider price ID to a tier name, defaulting to free.
func FromPriceID(priceToTier map[string]string, priceID string) string {
	if name, ok := priceToTier[priceID]; ok && name != "" {
		return name
	}
	return models.TierFree
}
