package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ops/drverify/pkg/promote"
	"github.com/meridian-ops/drverify/pkg/workload"
)

// Promotion is the destructive scenario: publish a known message count,
// wait for it to replicate, promote one downstream to primary, validate
// the recovered count, and restore the original topology. Disabled unless
// the operator explicitly opts in.
type Promotion struct{}

func (Promotion) Name() string          { return "promotion" }
func (Promotion) Budget() time.Duration { return 20 * time.Minute }

func (Promotion) Run(ctx context.Context, env *Env) (map[string]string, error) {
	if !env.Opts.EnablePromotion {
		return nil, &SkipError{Reason: "destructive promotion testing disabled (enable with --enable-promotion)"}
	}
	downstreams, any := env.downstreams()
	if !any {
		return nil, &SkipError{Reason: "all downstream clusters are cross-region and --skip-cross-region is set"}
	}
	target := downstreams[0]

	entity := fmt.Sprintf("%s-promo-%s", env.Opts.Namespace, uuid.NewString()[:8])
	expected := int64(env.Opts.MessageCount)

	res, err := env.Workload.Run(ctx, workload.Spec{
		Target:      env.Opts.WorkloadTarget,
		Entity:      entity,
		Producers:   1,
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

	// Let the published data land on the target before cutting it over.
	node := target.Nodes[0]
	err = waitFor(ctx, 2*time.Second,
		fmt.Sprintf("entity %s to replicate to cluster %s", entity, target.ClusterID),
		func(ctx context.Context) (bool, error) {
			count, exists, err := env.Mgmt.EntityCount(ctx, node, env.Opts.Namespace, entity)
			if err != nil || !exists {
				return false, err
			}
			return count >= expected, nil
		})
	if err != nil {
		return nil, err
	}

	rec, err := env.Machine.Execute(ctx, target, env.Opts.UpstreamEndpoints,
		promote.Entity{Namespace: env.Opts.Namespace, Name: entity}, expected)

	m := map[string]string{
		"cluster":             target.ClusterID,
		"expected":            strconv.FormatInt(expected, 10),
		"validation_outcome":  string(rec.ValidationOutcome),
		"restoration_outcome": string(rec.RestorationOutcome),
	}
	if !rec.PromotedAt.IsZero() {
		m["promoted_at"] = rec.PromotedAt.Format(time.RFC3339)
	}
	if !rec.RestoredAt.IsZero() {
		m["restored_at"] = rec.RestoredAt.Format(time.RFC3339)
	}
	if err != nil {
		return m, err
	}

	// Round trip complete: the restored cluster must carry an active link
	// again.
	if _, found := env.Discoverer.Discover(ctx, target); !found {
		return m, errors.New("no carrier discoverable after restoration")
	}
	return m, nil
}
