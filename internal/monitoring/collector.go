package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vcms/internal/model"
)

const collectPageSize = 500

// VendorSnapshot holds a point-in-time summary of stored vendors.
type VendorSnapshot struct {
	Total       int       `json:"total"`
	Validated   int       `json:"validated"`
	Ambiguous   int       `json:"ambiguous"`
	DoNotUse    int       `json:"do_not_use"`
	AvgScore    float64   `json:"avg_score"`
	CollectedAt time.Time `json:"collected_at"`
}

// VendorLister is the store method the collector needs.
type VendorLister interface {
	ListVendorProfiles(ctx context.Context, filter model.VendorFilter) ([]model.VendorProfile, error)
}

// Collector gathers vendor snapshots from the store.
type Collector struct {
	store VendorLister
}

// NewCollector creates a new snapshot collector.
func NewCollector(st VendorLister) *Collector {
	return &Collector{store: st}
}

// Collect pages through all vendor profiles and summarizes them.
func (c *Collector) Collect(ctx context.Context) (*VendorSnapshot, error) {
	snap := &VendorSnapshot{CollectedAt: time.Now().UTC()}

	var totalScore int
	for offset := 0; ; offset += collectPageSize {
		page, err := c.store.ListVendorProfiles(ctx, model.VendorFilter{
			Limit:  collectPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list vendors")
		}

		for _, p := range page {
			snap.Total++
			totalScore += p.VCMSScore
			switch p.ValidationStatus {
			case model.ValidationValidated:
				snap.Validated++
			case model.ValidationAmbiguous:
				snap.Ambiguous++
			}
			if p.IsDoNotUse {
				snap.DoNotUse++
			}
		}
		if len(page) < collectPageSize {
			break
		}
	}

	if snap.Total > 0 {
		snap.AvgScore = float64(totalScore) / float64(snap.Total)
	}
	return snap, nil
}
