package discover

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/probe"
	"github.com/meridian-ops/drverify/pkg/types"
)

// Discoverer locates the carrier node of a downstream cluster: the one
// member currently holding the active replication connection. The carrier
// is an unpinned runtime property of the cluster, so it is computed fresh
// on every call and never cached.
type Discoverer struct {
	prober *probe.Prober
	logger zerolog.Logger
}

// NewDiscoverer creates a discoverer backed by the given prober
func NewDiscoverer(p *probe.Prober) *Discoverer {
	return &Discoverer{
		prober: p,
		logger: log.WithComponent("discover"),
	}
}

// Discover probes every candidate node of the cluster once, in parallel,
// each with the prober's own bounded timeout, and returns the first node
// classified connected. The boolean reports whether a carrier was found.
//
// A candidate failing to respond is treated exactly like a negative
// classification; it never aborts discovery of the rest. There is no
// internal retry: one invocation is one pass.
func (d *Discoverer) Discover(ctx context.Context, cluster types.ClusterTopology) (types.Node, bool) {
	candidates := cluster.Nodes
	if len(candidates) == 0 {
		return types.Node{}, false
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan probe.Result, len(candidates))
	for _, node := range candidates {
		go func(n types.Node) {
			results <- d.prober.Probe(probeCtx, n)
		}(node)
	}

	for range candidates {
		res := <-results
		if res.Err != nil {
			d.logger.Warn().Err(res.Err).
				Str("cluster", cluster.ClusterID).
				Str("node", res.Node.Address).
				Msg("candidate unreachable, continuing")
			continue
		}
		if res.State == types.LinkConnected {
			d.logger.Info().
				Str("cluster", cluster.ClusterID).
				Str("node", res.Node.Address).
				Msg("carrier found")
			// Remaining probes are cancelled; at most one member can be
			// connected at a time, so the winner is stable.
			return res.Node, true
		}
	}

	d.logger.Info().Str("cluster", cluster.ClusterID).Msg("no carrier found")
	return types.Node{}, false
}
