package types

import (
	"fmt"
	"time"
)

// ClusterRole defines a cluster's position in the replication topology
type ClusterRole string

const (
	RoleUpstream   ClusterRole = "upstream"
	RoleDownstream ClusterRole = "downstream"
)

// PeerClass classifies a downstream's network distance from the upstream
type PeerClass string

const (
	PeerRegional    PeerClass = "regional"
	PeerCrossRegion PeerClass = "cross-region"
)

// Node is one member of a cluster. Identity is the address.
type Node struct {
	Address    string `json:"address" yaml:"address"`
	ClusterID  string `json:"cluster_id" yaml:"cluster_id"`
	Datacenter string `json:"datacenter" yaml:"datacenter"`
}

func (n Node) String() string {
	return n.Address
}

// ClusterTopology describes one cluster and its declared replication role.
// Immutable after load.
type ClusterTopology struct {
	ClusterID string      `json:"cluster_id"`
	Role      ClusterRole `json:"role"`
	Nodes     []Node      `json:"nodes"` // ordered candidate list
	PeerClass PeerClass   `json:"peer_class"`
}

// Topology is the read-only registry of all clusters in a run.
type Topology struct {
	Clusters []ClusterTopology `json:"clusters"`
}

// Cluster returns the cluster with the given ID
func (t *Topology) Cluster(id string) (ClusterTopology, bool) {
	for _, c := range t.Clusters {
		if c.ClusterID == id {
			return c, true
		}
	}
	return ClusterTopology{}, false
}

// Upstream returns the single upstream cluster
func (t *Topology) Upstream() (ClusterTopology, bool) {
	for _, c := range t.Clusters {
		if c.Role == RoleUpstream {
			return c, true
		}
	}
	return ClusterTopology{}, false
}

// Downstreams returns all downstream clusters in declaration order
func (t *Topology) Downstreams() []ClusterTopology {
	var out []ClusterTopology
	for _, c := range t.Clusters {
		if c.Role == RoleDownstream {
			out = append(out, c)
		}
	}
	return out
}

// LinkState is the classified replication status of one node.
// Recomputed on every discovery pass, never cached across scenarios.
type LinkState string

const (
	LinkConnected    LinkState = "connected"
	LinkDisconnected LinkState = "disconnected"
	LinkUnknown      LinkState = "unknown"
)

// LagSample is one upstream/downstream timestamp comparison for a tracked
// entity. LagMS is clamped to >= 0: the downstream can transiently appear
// ahead of the upstream because the two timestamp sequences are polled
// independently.
type LagSample struct {
	ObservedAt   time.Time `json:"observed_at"`
	UpstreamTS   int64     `json:"upstream_ts"`   // milliseconds
	DownstreamTS int64     `json:"downstream_ts"` // milliseconds
	LagMS        int64     `json:"lag_ms"`
}

// NewLagSample builds a sample with the lag clamped to zero
func NewLagSample(observedAt time.Time, upstreamTS, downstreamTS int64) LagSample {
	lag := upstreamTS - downstreamTS
	if lag < 0 {
		lag = 0
	}
	return LagSample{
		ObservedAt:   observedAt,
		UpstreamTS:   upstreamTS,
		DownstreamTS: downstreamTS,
		LagMS:        lag,
	}
}

// LagStatistics aggregates one sampling run. SampleCount == 0 means no
// downstream occurrence was ever observed; it is a distinct no-data state,
// not zero lag.
type LagStatistics struct {
	SampleCount  int           `json:"sample_count"`
	MinMS        int64         `json:"min_ms"`
	MaxMS        int64         `json:"max_ms"`
	SumMS        int64         `json:"-"`
	InitialDelay time.Duration `json:"initial_delay"`
	// DelayMeasured reports whether InitialDelay was actually observed;
	// a zero InitialDelay with DelayMeasured false means the entity never
	// appeared downstream.
	DelayMeasured bool `json:"delay_measured"`
}

// Observe folds one sample into the aggregate
func (s *LagStatistics) Observe(sample LagSample) {
	if s.SampleCount == 0 || sample.LagMS < s.MinMS {
		s.MinMS = sample.LagMS
	}
	if sample.LagMS > s.MaxMS {
		s.MaxMS = sample.LagMS
	}
	s.SumMS += sample.LagMS
	s.SampleCount++
}

// AvgMS returns the mean steady-state lag, or 0 when there is no data
func (s *LagStatistics) AvgMS() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.SumMS) / float64(s.SampleCount)
}

func (s *LagStatistics) String() string {
	if s.SampleCount == 0 {
		return "no samples"
	}
	return fmt.Sprintf("samples=%d min=%dms max=%dms avg=%.1fms initial_delay=%s",
		s.SampleCount, s.MinMS, s.MaxMS, s.AvgMS(), s.InitialDelay)
}

// ValidationOutcome classifies recovered data after promotion
type ValidationOutcome string

const (
	ValidationFull    ValidationOutcome = "full"
	ValidationPartial ValidationOutcome = "partial"
	ValidationNone    ValidationOutcome = "none"
)

// RestorationOutcome is the terminal state of the restore step
type RestorationOutcome string

const (
	RestorationPending RestorationOutcome = "pending"
	RestorationSuccess RestorationOutcome = "success"
	RestorationFailed  RestorationOutcome = "failed"
)

// PromotionRecord is created the moment a promotion request is accepted.
// Its existence enforces that restoration is always attempted: a record
// whose RestorationOutcome never leaves pending indicates a crash mid-
// promotion and requires operator action.
type PromotionRecord struct {
	ClusterID          string             `json:"cluster_id"`
	PromotedAt         time.Time          `json:"promoted_at"`
	ValidationOutcome  ValidationOutcome  `json:"validation_outcome"`
	RestoredAt         time.Time          `json:"restored_at,omitempty"`
	RestorationOutcome RestorationOutcome `json:"restoration_outcome"`
}

// ScenarioStatus is the terminal status of one scenario
type ScenarioStatus string

const (
	StatusPass    ScenarioStatus = "pass"
	StatusFail    ScenarioStatus = "fail"
	StatusSkip    ScenarioStatus = "skip"
	StatusTimeout ScenarioStatus = "timeout"
)

// ScenarioResult records the outcome of one scenario. Immutable once
// recorded; the result list for a run is append-only.
type ScenarioResult struct {
	Name    string            `json:"name"`
	Status  ScenarioStatus    `json:"status"`
	Metrics map[string]string `json:"metrics,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}
