package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ops/drverify/pkg/workload"
)

// Throughput drives a sustained publish/consume workload and asserts the
// parsed send/receive rates stay above the configured floor. A rate the
// driver failed to report parses as 0 and fails the floor check, but is
// still only a scenario failure, never a run abort.
type Throughput struct{}

func (Throughput) Name() string          { return "throughput" }
func (Throughput) Budget() time.Duration { return 15 * time.Minute }

func (Throughput) Run(ctx context.Context, env *Env) (map[string]string, error) {
	entity := fmt.Sprintf("%s-tput-%s", env.Opts.Namespace, uuid.NewString()[:8])

	res, err := env.Workload.Run(ctx, workload.Spec{
		Target:       env.Opts.WorkloadTarget,
		Entity:       entity,
		Producers:    2,
		Consumers:    2,
		MessageSize:  env.Opts.MessageSize,
		Rate:         env.Opts.Rate,
		Duration:     env.Opts.WorkloadDuration,
		ConfirmBatch: 100,
	})
	if err != nil {
		return nil, fmt.Errorf("workload driver: %w", err)
	}

	m := map[string]string{
		"send_rate":    fmt.Sprintf("%.1f", res.SendRate),
		"receive_rate": fmt.Sprintf("%.1f", res.ReceiveRate),
	}

	var failures []error
	if res.ExitErr != nil {
		failures = append(failures, fmt.Errorf("workload driver exited: %w", res.ExitErr))
	}
	if res.SendRate < env.Opts.ThroughputFloor {
		failures = append(failures, fmt.Errorf("send rate %.1f msg/s below floor %.1f", res.SendRate, env.Opts.ThroughputFloor))
	}
	if res.ReceiveRate < env.Opts.ThroughputFloor {
		failures = append(failures, fmt.Errorf("receive rate %.1f msg/s below floor %.1f", res.ReceiveRate, env.Opts.ThroughputFloor))
	}
	return m, errors.Join(failures...)
}
