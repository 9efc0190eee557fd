package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ops/drverify/pkg/workload"
)

// MessageReplication verifies the data (stream) channel per downstream:
// messages published upstream become countable on every downstream.
type MessageReplication struct{}

func (MessageReplication) Name() string          { return "message-replication" }
func (MessageReplication) Budget() time.Duration { return 10 * time.Minute }

func (MessageReplication) Run(ctx context.Context, env *Env) (map[string]string, error) {
	downstreams, any := env.downstreams()
	if !any {
		return nil, &SkipError{Reason: "all downstream clusters are cross-region and --skip-cross-region is set"}
	}

	entity := fmt.Sprintf("%s-msg-%s", env.Opts.Namespace, uuid.NewString()[:8])
	expected := int64(env.Opts.MessageCount)

	// Producers only: consuming would drain the counts the downstream
	// verification depends on.
	res, err := env.Workload.Run(ctx, workload.Spec{
		Target:      env.Opts.WorkloadTarget,
		Entity:      entity,
		Producers:   1,
		Consumers:   0,
		MessageSize: env.Opts.MessageSize,
		Rate:        env.Opts.Rate,
		Duration:    env.Opts.WorkloadDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("workload driver: %w", err)
	}
	if res.ExitErr != nil {
		return nil, fmt.Errorf("workload driver exited: %w", res.ExitErr)
	}

	m := map[string]string{
		"entity":    entity,
		"expected":  strconv.FormatInt(expected, 10),
		"send_rate": fmt.Sprintf("%.0f", res.SendRate),
	}

	var failures []error
	for _, cluster := range downstreams {
		node := cluster.Nodes[0]
		var observed int64
		werr := waitFor(ctx, 2*time.Second,
			fmt.Sprintf("entity %s to reach %d entries on cluster %s", entity, expected, cluster.ClusterID),
			func(ctx context.Context) (bool, error) {
				count, exists, err := env.Mgmt.EntityCount(ctx, node, env.Opts.Namespace, entity)
				if err != nil || !exists {
					return false, err
				}
				observed = count
				return count >= expected, nil
			})
		m["observed_"+cluster.ClusterID] = strconv.FormatInt(observed, 10)
		if werr != nil {
			failures = append(failures, fmt.Errorf("cluster %s: observed %d of expected %d: %w", cluster.ClusterID, observed, expected, werr))
		}
	}
	return m, errors.Join(failures...)
}
