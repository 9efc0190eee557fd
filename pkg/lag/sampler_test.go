package lag

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/drverify/pkg/types"
)

// funcSource adapts two closures to the Source interface
type funcSource struct {
	upstream   func() (int64, bool, error)
	downstream func() (int64, bool, error)
}

func (f *funcSource) UpstreamTimestamp(ctx context.Context) (int64, bool, error) {
	return f.upstream()
}

func (f *funcSource) DownstreamTimestamp(ctx context.Context) (int64, bool, error) {
	return f.downstream()
}

func fastConfig() Config {
	return Config{
		Entity:            "test-entity",
		Cluster:           "dr",
		Interval:          5 * time.Millisecond,
		Deadline:          100 * time.Millisecond,
		AppearanceTimeout: 50 * time.Millisecond,
	}
}

func neverDone() <-chan struct{} {
	return make(chan struct{})
}

func TestRunUpstreamNeverAppears(t *testing.T) {
	src := &funcSource{
		upstream:   func() (int64, bool, error) { return 0, false, nil },
		downstream: func() (int64, bool, error) { return 0, false, nil },
	}

	stats, err := New(src, fastConfig()).Run(context.Background(), neverDone())

	var nyv *types.NotYetVisibleError
	require.ErrorAs(t, err, &nyv)
	assert.Equal(t, "upstream", nyv.Side)
	assert.Equal(t, 0, stats.SampleCount)
	assert.False(t, stats.DelayMeasured)
}

func TestRunDownstreamNeverAppears(t *testing.T) {
	src := &funcSource{
		upstream:   func() (int64, bool, error) { return 1000, true, nil },
		downstream: func() (int64, bool, error) { return 0, false, nil },
	}

	stats, err := New(src, fastConfig()).Run(context.Background(), neverDone())

	var nyv *types.NotYetVisibleError
	require.ErrorAs(t, err, &nyv)
	assert.Equal(t, "downstream", nyv.Side)
	// Explicit no-data state, distinct from zero lag.
	assert.Equal(t, 0, stats.SampleCount)
	assert.False(t, stats.DelayMeasured)
}

func TestRunCollectsClampedSamples(t *testing.T) {
	var up, down atomic.Int64
	up.Store(1000)
	down.Store(1005) // downstream transiently ahead: sampling skew

	src := &funcSource{
		upstream:   func() (int64, bool, error) { return up.Load(), true, nil },
		downstream: func() (int64, bool, error) { return down.Load(), true, nil },
	}

	stats, err := New(src, fastConfig()).Run(context.Background(), neverDone())
	require.NoError(t, err)

	assert.True(t, stats.DelayMeasured)
	assert.GreaterOrEqual(t, stats.InitialDelay, time.Duration(0))
	require.Greater(t, stats.SampleCount, 0)
	// upstream_ts=1000, downstream_ts=1005 must report lag 0, not -5
	assert.Equal(t, int64(0), stats.MinMS)
	assert.Equal(t, int64(0), stats.MaxMS)
	assert.Equal(t, float64(0), stats.AvgMS())
}

func TestRunTracksPositiveLag(t *testing.T) {
	src := &funcSource{
		upstream:   func() (int64, bool, error) { return 2000, true, nil },
		downstream: func() (int64, bool, error) { return 1800, true, nil },
	}

	stats, err := New(src, fastConfig()).Run(context.Background(), neverDone())
	require.NoError(t, err)

	require.Greater(t, stats.SampleCount, 0)
	assert.Equal(t, int64(200), stats.MinMS)
	assert.Equal(t, int64(200), stats.MaxMS)
	assert.InDelta(t, 200, stats.AvgMS(), 0.001)
}

func TestRunStopsWhenWorkloadExits(t *testing.T) {
	src := &funcSource{
		upstream:   func() (int64, bool, error) { return 1000, true, nil },
		downstream: func() (int64, bool, error) { return 1000, true, nil },
	}

	cfg := fastConfig()
	cfg.Deadline = time.Hour // only the workload exit can stop the loop

	done := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(done)
	}()

	start := time.Now()
	_, err := New(src, cfg).Run(context.Background(), done)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunSkipsTransientFetchErrors(t *testing.T) {
	var calls atomic.Int64
	src := &funcSource{
		upstream: func() (int64, bool, error) { return 1500, true, nil },
		downstream: func() (int64, bool, error) {
			// Fail every other fetch; the tick is skipped, not fatal.
			if calls.Add(1)%2 == 0 {
				return 0, false, context.DeadlineExceeded
			}
			return 1500, true, nil
		},
	}

	stats, err := New(src, fastConfig()).Run(context.Background(), neverDone())
	require.NoError(t, err)
	assert.Greater(t, stats.SampleCount, 0)
}
