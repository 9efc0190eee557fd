package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/metrics"
	"github.com/meridian-ops/drverify/pkg/types"
)

const defaultTimeout = 5 * time.Second

// StatusClient fetches the raw replication status text from one node.
// Implemented by mgmt.Client.
type StatusClient interface {
	ReplicationStatus(ctx context.Context, node types.Node) (string, error)
}

// Result is the outcome of a single probe
type Result struct {
	Node      types.Node
	State     types.LinkState
	Raw       string
	CheckedAt time.Time
	Duration  time.Duration
	// Err is set when the probe itself failed (network, remote access).
	// The state is then unknown; the failure is never fatal to the caller.
	Err error
}

// Prober issues one bounded status query against one node and classifies
// the response
type Prober struct {
	client  StatusClient
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProber creates a prober with the given per-probe timeout. A zero
// timeout uses the default.
func NewProber(client StatusClient, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Prober{
		client:  client,
		timeout: timeout,
		logger:  log.WithComponent("probe"),
	}
}

// Probe queries one node's replication status. A transport failure is
// recorded in Result.Err as a types.ProbeError and classified unknown.
func (p *Prober) Probe(ctx context.Context, node types.Node) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.client.ReplicationStatus(ctx, node)
	res := Result{
		Node:      node,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		res.State = types.LinkUnknown
		res.Err = &types.ProbeError{Node: node.Address, Err: err}
		p.logger.Debug().Err(err).Str("node", node.Address).Msg("probe failed")
	} else {
		res.Raw = raw
		res.State = Classify(raw)
		p.logger.Debug().Str("node", node.Address).Str("state", string(res.State)).Msg("probe done")
	}
	metrics.ProbeDuration.WithLabelValues(string(res.State)).Observe(res.Duration.Seconds())
	return res
}
