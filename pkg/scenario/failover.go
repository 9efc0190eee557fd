package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-ops/drverify/pkg/chaos"
)

// CarrierFailover kills the current carrier node of each downstream
// cluster and verifies the cluster re-establishes an active link on a
// surviving member within the observation window. The fault is always
// healed, pass or fail. Requires an external fault-injection runner.
type CarrierFailover struct{}

func (CarrierFailover) Name() string          { return "carrier-failover" }
func (CarrierFailover) Budget() time.Duration { return 10 * time.Minute }

func (CarrierFailover) Run(ctx context.Context, env *Env) (map[string]string, error) {
	if env.Opts.FaultRunner == "" {
		return nil, &SkipError{Reason: "no fault-injection runner configured (--fault-runner)"}
	}
	downstreams, any := env.downstreams()
	if !any {
		return nil, &SkipError{Reason: "all downstream clusters are cross-region and --skip-cross-region is set"}
	}

	m := make(map[string]string)
	var failures []error

	for _, cluster := range downstreams {
		if len(cluster.Nodes) < 2 {
			// Killing the only member proves nothing about failover.
			m["skipped_"+cluster.ClusterID] = "single-node cluster"
			continue
		}

		carrier, found := env.Discoverer.Discover(ctx, cluster)
		if !found {
			failures = append(failures, fmt.Errorf("cluster %s: no carrier before fault injection", cluster.ClusterID))
			continue
		}
		m["carrier_before_"+cluster.ClusterID] = carrier.Address

		action := chaos.NodeKill(env.Opts.FaultRunner, carrier)
		err := chaos.RunWithHeal(ctx, action, func(ctx context.Context) error {
			return waitFor(ctx, 5*time.Second,
				fmt.Sprintf("cluster %s to re-establish a carrier", cluster.ClusterID),
				func(ctx context.Context) (bool, error) {
					node, ok := env.Discoverer.Discover(ctx, cluster)
					if ok {
						m["carrier_after_"+cluster.ClusterID] = node.Address
					}
					return ok, nil
				})
		})
		if err != nil {
			failures = append(failures, fmt.Errorf("cluster %s: %w", cluster.ClusterID, err))
		}
	}
	return m, errors.Join(failures...)
}
