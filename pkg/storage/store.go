package storage

import (
	"time"

	"github.com/meridian-ops/drverify/pkg/types"
)

// Run identifies one orchestrator invocation
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Journal persists scenario results and promotion records as they are
// recorded. The promotion records are the important part: a promotion
// whose restoration outcome is still pending after a crash must remain
// visible to the operator.
type Journal interface {
	// StartRun registers a new run
	StartRun(run Run) error
	// LastRun returns the most recently started run
	LastRun() (Run, bool, error)

	// AppendResult appends a scenario result to a run (append-only)
	AppendResult(runID string, res types.ScenarioResult) error
	// Results returns a run's results in append order
	Results(runID string) ([]types.ScenarioResult, error)

	// PutPromotion upserts a promotion record keyed by cluster and
	// promotion time
	PutPromotion(rec types.PromotionRecord) error
	// Promotions returns all promotion records
	Promotions() ([]types.PromotionRecord, error)
	// UnrestoredPromotions returns records whose restoration never
	// completed successfully
	UnrestoredPromotions() ([]types.PromotionRecord, error)

	// Close releases the underlying database
	Close() error
}
