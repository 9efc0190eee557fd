package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-ops/drverify/pkg/discover"
	"github.com/meridian-ops/drverify/pkg/mgmt"
	"github.com/meridian-ops/drverify/pkg/promote"
	"github.com/meridian-ops/drverify/pkg/storage"
	"github.com/meridian-ops/drverify/pkg/types"
	"github.com/meridian-ops/drverify/pkg/workload"
)

// Scenario is one independent verification. Run returns metrics for the
// final report and an error on assertion failure; it must honor ctx, which
// carries the scenario's wall-clock budget.
type Scenario interface {
	Name() string
	Budget() time.Duration
	Run(ctx context.Context, env *Env) (map[string]string, error)
}

// SkipError marks a scenario as not applicable rather than failed
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Env bundles the shared collaborators scenarios run against. The topology
// is read-only; scenarios never mutate it.
type Env struct {
	Topology   *types.Topology
	Mgmt       *mgmt.Client
	Discoverer *discover.Discoverer
	Workload   *workload.Runner
	Machine    *promote.Machine
	Journal    storage.Journal
	Opts       Options
}

// Options are the run-level knobs from the CLI surface
type Options struct {
	// SkipCrossRegion skips scenarios against cross-region downstreams
	SkipCrossRegion bool
	// EnablePromotion allows the destructive promotion scenario
	EnablePromotion bool
	// NoCleanup leaves test namespaces and entities in place
	NoCleanup bool

	// Namespace is the virtual namespace test artifacts live in
	Namespace string
	// WorkloadTarget is the data-plane URI handed to the workload driver
	WorkloadTarget string
	// MessageCount is the expected number of replicated messages
	MessageCount int
	// Rate and MessageSize parameterize the workload driver
	Rate        int
	MessageSize int
	// WorkloadDuration bounds each workload invocation
	WorkloadDuration time.Duration
	// ThroughputFloor is the minimum acceptable msg/s in the throughput
	// scenario
	ThroughputFloor float64
	// UpstreamEndpoints is re-applied during restoration
	UpstreamEndpoints mgmt.UpstreamEndpoints
	// FaultRunner is the external fault-injection binary; empty skips
	// chaos scenarios
	FaultRunner string
}

// DefaultSequence is the full scenario order for `drverify verify all`
func DefaultSequence() []Scenario {
	return []Scenario{
		Connectivity{},
		SchemaReplication{},
		MessageReplication{},
		LagMeasurement{},
		Throughput{},
		CarrierFailover{},
		Promotion{},
	}
}

// DefaultOptions returns the option defaults the CLI starts from
func DefaultOptions() Options {
	return Options{
		Namespace:        "drverify",
		MessageCount:     100,
		Rate:             100,
		MessageSize:      1024,
		WorkloadDuration: 30 * time.Second,
		ThroughputFloor:  1,
	}
}

// downstreams returns the downstream clusters a scenario should touch,
// honoring the cross-region skip. The bool is false when the skip leaves
// nothing to verify.
func (e *Env) downstreams() ([]types.ClusterTopology, bool) {
	all := e.Topology.Downstreams()
	if !e.Opts.SkipCrossRegion {
		return all, len(all) > 0
	}
	var kept []types.ClusterTopology
	for _, c := range all {
		if c.PeerClass != types.PeerCrossRegion {
			kept = append(kept, c)
		}
	}
	return kept, len(kept) > 0
}

// waitFor polls cond until it reports true, an unrecoverable error, or ctx
// expires. Transient errors from cond are swallowed and retried; only the
// timeout is terminal.
func waitFor(ctx context.Context, interval time.Duration, desc string, cond func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		if ok, _ := cond(ctx); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s after %s", desc, time.Since(start).Round(time.Second))
		case <-ticker.C:
		}
	}
}
