package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ops/drverify/pkg/lag"
	"github.com/meridian-ops/drverify/pkg/workload"
)

// LagMeasurement samples replication lag against each downstream while a
// workload drives the upstream. It asserts that the measurement itself
// succeeded (entity visible both sides, at least one steady-state sample);
// the measured values go into the report, not into pass/fail.
type LagMeasurement struct{}

func (LagMeasurement) Name() string          { return "lag" }
func (LagMeasurement) Budget() time.Duration { return 10 * time.Minute }

func (LagMeasurement) Run(ctx context.Context, env *Env) (map[string]string, error) {
	upstream, ok := env.Topology.Upstream()
	if !ok {
		return nil, errors.New("topology has no upstream cluster")
	}
	downstreams, any := env.downstreams()
	if !any {
		return nil, &SkipError{Reason: "all downstream clusters are cross-region and --skip-cross-region is set"}
	}

	m := make(map[string]string)
	var failures []error

	for _, cluster := range downstreams {
		carrier, found := env.Discoverer.Discover(ctx, cluster)
		if !found {
			failures = append(failures, fmt.Errorf("cluster %s: no carrier to sample against", cluster.ClusterID))
			continue
		}

		entity := fmt.Sprintf("%s-lag-%s", env.Opts.Namespace, uuid.NewString()[:8])
		handle, err := env.Workload.Start(ctx, workload.Spec{
			Target:      env.Opts.WorkloadTarget,
			Entity:      entity,
			Producers:   1,
			MessageSize: env.Opts.MessageSize,
			Rate:        env.Opts.Rate,
			Duration:    env.Opts.WorkloadDuration,
		})
		if err != nil {
			failures = append(failures, fmt.Errorf("cluster %s: workload driver: %w", cluster.ClusterID, err))
			continue
		}

		sampler := lag.New(&lag.MetricsSource{
			Client:     env.Mgmt,
			Upstream:   upstream.Nodes[0],
			Downstream: carrier,
			Entity:     entity,
		}, lag.Config{
			Entity:   entity,
			Cluster:  cluster.ClusterID,
			Interval: time.Second,
			Deadline: env.Opts.WorkloadDuration,
		})

		stats, serr := sampler.Run(ctx, handle.Done())
		handle.Wait()

		if serr != nil {
			failures = append(failures, fmt.Errorf("cluster %s: %w", cluster.ClusterID, serr))
			continue
		}
		if stats.SampleCount == 0 {
			failures = append(failures, fmt.Errorf("cluster %s: no steady-state samples collected", cluster.ClusterID))
			continue
		}

		id := cluster.ClusterID
		m["initial_delay_ms_"+id] = strconv.FormatInt(stats.InitialDelay.Milliseconds(), 10)
		m["lag_samples_"+id] = strconv.Itoa(stats.SampleCount)
		m["lag_min_ms_"+id] = strconv.FormatInt(stats.MinMS, 10)
		m["lag_max_ms_"+id] = strconv.FormatInt(stats.MaxMS, 10)
		m["lag_avg_ms_"+id] = fmt.Sprintf("%.1f", stats.AvgMS())
	}
	return m, errors.Join(failures...)
}
