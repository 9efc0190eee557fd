package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Connectivity verifies that every node in every cluster answers the
// roster query and reports all members running, and that each downstream
// cluster has exactly one discoverable carrier.
type Connectivity struct{}

func (Connectivity) Name() string          { return "connectivity" }
func (Connectivity) Budget() time.Duration { return 2 * time.Minute }

func (Connectivity) Run(ctx context.Context, env *Env) (map[string]string, error) {
	var failures []error
	nodesChecked := 0

	for _, cluster := range env.Topology.Clusters {
		for _, node := range cluster.Nodes {
			nodesChecked++
			roster, err := env.Mgmt.Roster(ctx, node)
			if err != nil {
				failures = append(failures, fmt.Errorf("node %s: roster query failed: %w", node.Address, err))
				continue
			}
			for _, entry := range roster {
				if !entry.Running {
					failures = append(failures, fmt.Errorf("node %s reports member %s not running", node.Address, entry.Name))
				}
			}
		}
	}

	carriers := 0
	for _, cluster := range env.Topology.Downstreams() {
		carrier, found := env.Discoverer.Discover(ctx, cluster)
		if !found {
			failures = append(failures, fmt.Errorf("downstream cluster %s has no active carrier", cluster.ClusterID))
			continue
		}
		carriers++
		// One more pass against a stable cluster must agree.
		again, found := env.Discoverer.Discover(ctx, cluster)
		if !found || again.Address != carrier.Address {
			failures = append(failures, fmt.Errorf("carrier discovery unstable for cluster %s", cluster.ClusterID))
		}
	}

	m := map[string]string{
		"nodes_checked": strconv.Itoa(nodesChecked),
		"carriers":      strconv.Itoa(carriers),
	}
	return m, errors.Join(failures...)
}
