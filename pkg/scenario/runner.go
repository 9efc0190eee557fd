package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/metrics"
	"github.com/meridian-ops/drverify/pkg/storage"
	"github.com/meridian-ops/drverify/pkg/types"
)

// Report is the aggregate outcome of one run
type Report struct {
	RunID   string
	Results []types.ScenarioResult
}

// Failed counts scenarios that did not pass and were not skipped
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == types.StatusFail || res.Status == types.StatusTimeout {
			n++
		}
	}
	return n
}

// Passed reports the aggregate status: all non-skipped scenarios passed
func (r Report) Passed() bool {
	return r.Failed() == 0
}

// Runner sequences scenarios one at a time. Scenarios never run
// concurrently: two scenarios touching the same cluster would interleave
// state transitions.
type Runner struct {
	scenarios []Scenario
	env       *Env
	logger    zerolog.Logger
}

// NewRunner creates a runner over the given scenario sequence
func NewRunner(env *Env, scenarios ...Scenario) *Runner {
	return &Runner{
		scenarios: scenarios,
		env:       env,
		logger:    log.WithComponent("runner"),
	}
}

// Run executes every scenario in order. A scenario failing, timing out or
// panicking never prevents the remaining scenarios from running; results
// are append-only and journaled as they are recorded.
func (r *Runner) Run(ctx context.Context) Report {
	report := Report{RunID: uuid.NewString()}

	if r.env.Journal != nil {
		if err := r.env.Journal.StartRun(storage.Run{ID: report.RunID, StartedAt: time.Now().UTC()}); err != nil {
			r.logger.Error().Err(err).Msg("failed to journal run start")
		}
	}

	for _, sc := range r.scenarios {
		res := r.runOne(ctx, sc)
		report.Results = append(report.Results, res)

		metrics.ScenarioOutcomes.WithLabelValues(res.Name, string(res.Status)).Inc()
		if r.env.Journal != nil {
			if err := r.env.Journal.AppendResult(report.RunID, res); err != nil {
				r.logger.Error().Err(err).Str("scenario", res.Name).Msg("failed to journal result")
			}
		}
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) types.ScenarioResult {
	logger := log.WithScenario(sc.Name())
	logger.Info().Dur("budget", sc.Budget()).Msg("scenario starting")

	scenarioCtx, cancel := context.WithTimeout(ctx, sc.Budget())
	defer cancel()

	type outcome struct {
		metrics map[string]string
		err     error
	}
	outCh := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				outCh <- outcome{err: fmt.Errorf("scenario panicked: %v", rec)}
			}
		}()
		m, err := sc.Run(scenarioCtx, r.env)
		outCh <- outcome{metrics: m, err: err}
	}()

	res := types.ScenarioResult{Name: sc.Name()}
	select {
	case out := <-outCh:
		res.Metrics = out.metrics
		var skip *SkipError
		switch {
		case out.err == nil:
			res.Status = types.StatusPass
		case errors.As(out.err, &skip):
			res.Status = types.StatusSkip
			res.Reason = skip.Reason
		case scenarioCtx.Err() != nil && errors.Is(out.err, context.DeadlineExceeded):
			res.Status = types.StatusTimeout
			res.Reason = fmt.Sprintf("budget %s exceeded", sc.Budget())
		default:
			res.Status = types.StatusFail
			res.Reason = out.err.Error()
		}
	case <-scenarioCtx.Done():
		// The scenario body did not come back before the budget elapsed.
		res.Status = types.StatusTimeout
		res.Reason = fmt.Sprintf("budget %s exceeded", sc.Budget())
	}

	elapsed := time.Since(start)
	metrics.ScenarioDuration.WithLabelValues(sc.Name()).Observe(elapsed.Seconds())
	logger.Info().
		Str("status", string(res.Status)).
		Dur("elapsed", elapsed).
		Str("reason", res.Reason).
		Msg("scenario finished")
	return res
}
