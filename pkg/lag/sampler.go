package lag

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/metrics"
	"github.com/meridian-ops/drverify/pkg/types"
)

// Source provides the two timestamp sequences for one tracked entity. The
// boolean reports whether the entity appeared in the metrics table at all.
// Implemented over mgmt.Client by MetricsSource.
type Source interface {
	UpstreamTimestamp(ctx context.Context) (ts int64, present bool, err error)
	DownstreamTimestamp(ctx context.Context) (ts int64, present bool, err error)
}

// Config bounds one sampling run
type Config struct {
	Entity  string
	Cluster string // downstream cluster ID, used for metric labels

	// Interval between samples
	Interval time.Duration
	// Deadline bounds the steady-state sampling phase
	Deadline time.Duration
	// AppearanceTimeout bounds each wait for the entity to first appear
	AppearanceTimeout time.Duration
}

// Sampler measures initial replication delay and steady-state lag for one
// entity between one upstream and one downstream node
type Sampler struct {
	src    Source
	cfg    Config
	logger zerolog.Logger
}

// New creates a sampler. Zero durations get conservative defaults.
func New(src Source, cfg Config) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = time.Minute
	}
	if cfg.AppearanceTimeout <= 0 {
		cfg.AppearanceTimeout = 30 * time.Second
	}
	return &Sampler{
		src:    src,
		cfg:    cfg,
		logger: log.WithComponent("lag").With().Str("entity", cfg.Entity).Logger(),
	}
}

// Run executes one sampling run. It is bounded by the lesser of the
// configured deadline and the driving workload's lifetime (workloadDone);
// when the workload exits early, sampling stops rather than continuing
// against a dead stream.
//
// If the entity never appears upstream, initial-delay measurement itself
// fails and that is the terminal state: a NotYetVisibleError with empty
// statistics. If it appears upstream but never downstream, the returned
// statistics carry SampleCount 0 (explicit no-data, distinct from zero
// lag) alongside the downstream NotYetVisibleError.
func (s *Sampler) Run(ctx context.Context, workloadDone <-chan struct{}) (types.LagStatistics, error) {
	var stats types.LagStatistics

	upstreamAt, err := s.awaitAppearance(ctx, workloadDone, "upstream", s.src.UpstreamTimestamp)
	if err != nil {
		return stats, err
	}
	s.logger.Debug().Time("at", upstreamAt).Msg("entity visible upstream")

	downstreamAt, err := s.awaitAppearance(ctx, workloadDone, "downstream", s.src.DownstreamTimestamp)
	if err != nil {
		return stats, err
	}

	delay := downstreamAt.Sub(upstreamAt)
	if delay < 0 {
		delay = 0
	}
	stats.InitialDelay = delay
	stats.DelayMeasured = true
	metrics.InitialDelayMS.WithLabelValues(s.cfg.Cluster, s.cfg.Entity).Set(float64(delay.Milliseconds()))
	s.logger.Info().Dur("initial_delay", delay).Msg("entity visible downstream")

	s.sampleLoop(ctx, workloadDone, &stats)
	return stats, nil
}

// awaitAppearance polls one side until the entity shows up, bounded by the
// appearance timeout, the caller's context, and the workload lifetime.
// Transient fetch errors are skipped; only the timeout is terminal.
func (s *Sampler) awaitAppearance(ctx context.Context, workloadDone <-chan struct{}, side string, fetch func(context.Context) (int64, bool, error)) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AppearanceTimeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, present, err := fetch(ctx); err == nil && present {
			return time.Now(), nil
		} else if err != nil {
			s.logger.Debug().Err(err).Str("side", side).Msg("appearance poll failed, retrying")
		}

		select {
		case <-ctx.Done():
			return time.Time{}, &types.NotYetVisibleError{Entity: s.cfg.Entity, Side: side, Waited: time.Since(start)}
		case <-workloadDone:
			return time.Time{}, &types.NotYetVisibleError{Entity: s.cfg.Entity, Side: side, Waited: time.Since(start)}
		case <-ticker.C:
		}
	}
}

func (s *Sampler) sampleLoop(ctx context.Context, workloadDone <-chan struct{}, stats *types.LagStatistics) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-workloadDone:
			return
		case <-ticker.C:
		}

		up, upPresent, upErr := s.src.UpstreamTimestamp(ctx)
		down, downPresent, downErr := s.src.DownstreamTimestamp(ctx)
		if upErr != nil || downErr != nil || !upPresent || !downPresent {
			// Transient gap in either table; skip the tick.
			continue
		}

		sample := types.NewLagSample(time.Now(), up, down)
		stats.Observe(sample)
		metrics.ReplicationLagMS.WithLabelValues(s.cfg.Cluster, s.cfg.Entity).Set(float64(sample.LagMS))
		metrics.LagSampleDistribution.WithLabelValues(s.cfg.Cluster).Observe(float64(sample.LagMS))
		s.logger.Debug().Int64("lag_ms", sample.LagMS).Msg("sample")
	}
}
