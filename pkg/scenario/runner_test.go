package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/drverify/pkg/types"
)

// stubScenario is a scripted scenario body with a configurable budget
type stubScenario struct {
	name   string
	budget time.Duration
	run    func(ctx context.Context, env *Env) (map[string]string, error)
}

func (s *stubScenario) Name() string          { return s.name }
func (s *stubScenario) Budget() time.Duration { return s.budget }
func (s *stubScenario) Run(ctx context.Context, env *Env) (map[string]string, error) {
	return s.run(ctx, env)
}

func pass(name string) *stubScenario {
	return &stubScenario{name: name, budget: time.Second, run: func(context.Context, *Env) (map[string]string, error) {
		return map[string]string{"ok": "1"}, nil
	}}
}

func fail(name string, err error) *stubScenario {
	return &stubScenario{name: name, budget: time.Second, run: func(context.Context, *Env) (map[string]string, error) {
		return nil, err
	}}
}

func TestRunnerIsolatesFailures(t *testing.T) {
	r := NewRunner(&Env{},
		pass("first"),
		fail("second", errors.New("probe refused")),
		pass("third"),
	)

	report := r.Run(context.Background())
	require.Len(t, report.Results, 3)

	assert.Equal(t, types.StatusPass, report.Results[0].Status)
	assert.Equal(t, types.StatusFail, report.Results[1].Status)
	assert.Equal(t, "probe refused", report.Results[1].Reason)
	assert.Equal(t, types.StatusPass, report.Results[2].Status)

	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.Passed())
}

func TestRunnerSurvivesPanic(t *testing.T) {
	boom := &stubScenario{name: "boom", budget: time.Second, run: func(context.Context, *Env) (map[string]string, error) {
		panic("nil topology")
	}}

	report := NewRunner(&Env{}, boom, pass("after")).Run(context.Background())
	require.Len(t, report.Results, 2)

	assert.Equal(t, types.StatusFail, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Reason, "panicked")
	assert.Equal(t, types.StatusPass, report.Results[1].Status)
}

func TestRunnerEnforcesBudget(t *testing.T) {
	slow := &stubScenario{name: "slow", budget: 20 * time.Millisecond, run: func(ctx context.Context, _ *Env) (map[string]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	report := NewRunner(&Env{}, slow, pass("after")).Run(context.Background())
	require.Len(t, report.Results, 2)

	assert.Equal(t, types.StatusTimeout, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Reason, "budget")
	// Timed-out scenarios count as failures in the aggregate
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, types.StatusPass, report.Results[1].Status)
}

func TestRunnerBudgetWithUnresponsiveBody(t *testing.T) {
	// A body that ignores its context entirely still cannot stall the run.
	stuck := &stubScenario{name: "stuck", budget: 20 * time.Millisecond, run: func(context.Context, *Env) (map[string]string, error) {
		time.Sleep(500 * time.Millisecond)
		return nil, nil
	}}

	start := time.Now()
	report := NewRunner(&Env{}, stuck).Run(context.Background())
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, types.StatusTimeout, report.Results[0].Status)
}

func TestRunnerSkip(t *testing.T) {
	skipped := &stubScenario{name: "cross-region", budget: time.Second, run: func(context.Context, *Env) (map[string]string, error) {
		return nil, &SkipError{Reason: "no eligible downstreams"}
	}}

	report := NewRunner(&Env{}, skipped).Run(context.Background())
	assert.Equal(t, types.StatusSkip, report.Results[0].Status)
	assert.Equal(t, "no eligible downstreams", report.Results[0].Reason)
	// Skips do not fail the run
	assert.True(t, report.Passed())
}

func TestRunnerPreservesOrderAndMetrics(t *testing.T) {
	names := []string{"connectivity", "schema", "messages"}
	var scenarios []Scenario
	for _, n := range names {
		scenarios = append(scenarios, pass(n))
	}

	report := NewRunner(&Env{}, scenarios...).Run(context.Background())
	require.Len(t, report.Results, len(names))
	for i, n := range names {
		assert.Equal(t, n, report.Results[i].Name)
		assert.Equal(t, "1", report.Results[i].Metrics["ok"])
	}
	assert.NotEmpty(t, report.RunID)
}
