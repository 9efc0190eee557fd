package workload

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/metrics"
)

// Spec parameterizes one external workload driver invocation
type Spec struct {
	Target       string // AMQP/stream URI of the upstream cluster
	Entity       string
	Producers    int
	Consumers    int
	MessageSize  int // bytes
	Rate         int // messages per second, 0 = unthrottled
	Duration     time.Duration
	ConfirmBatch int // publisher confirmation batching, 0 = per-message
}

func (s Spec) args() []string {
	args := []string{
		"--uri", s.Target,
		"--queue", s.Entity,
		"--producers", strconv.Itoa(s.Producers),
		"--consumers", strconv.Itoa(s.Consumers),
		"--size", strconv.Itoa(s.MessageSize),
		"--time", strconv.Itoa(int(s.Duration.Seconds())),
	}
	if s.Rate > 0 {
		args = append(args, "--rate", strconv.Itoa(s.Rate))
	}
	if s.ConfirmBatch > 0 {
		args = append(args, "--confirm", strconv.Itoa(s.ConfirmBatch))
	}
	return args
}

// Result is the parsed outcome of a finished workload run. Rates the
// driver did not report parse as 0 (unknown), which is not an error.
type Result struct {
	SendRate    float64
	ReceiveRate float64
	Output      string
	ExitErr     error
}

// Runner launches the external workload driver binary
type Runner struct {
	binary string
	logger zerolog.Logger
}

// NewRunner creates a runner for the given driver binary
func NewRunner(binary string) *Runner {
	return &Runner{
		binary: binary,
		logger: log.WithComponent("workload"),
	}
}

// Handle tracks one running workload process. Done is closed when the
// process exits, making it usable as a liveness handle for concurrent
// samplers.
type Handle struct {
	done chan struct{}

	mu     sync.Mutex
	output bytes.Buffer
	result Result
}

// Done reports workload process exit
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits and returns the parsed result
func (h *Handle) Wait() Result {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Start launches the driver and returns immediately. The process is bound
// to ctx; cancelling it kills the driver.
func (r *Runner) Start(ctx context.Context, spec Spec) (*Handle, error) {
	cmd := exec.CommandContext(ctx, r.binary, spec.args()...)

	h := &Handle{done: make(chan struct{})}
	cmd.Stdout = &h.output
	cmd.Stderr = &h.output

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start workload driver %s: %w", r.binary, err)
	}
	r.logger.Info().
		Str("entity", spec.Entity).
		Int("producers", spec.Producers).
		Int("consumers", spec.Consumers).
		Dur("duration", spec.Duration).
		Int("pid", cmd.Process.Pid).
		Msg("workload driver started")

	go func() {
		err := cmd.Wait()

		h.mu.Lock()
		out := h.output.String()
		h.result = Result{
			SendRate:    ParseRate(out, SendRatePattern),
			ReceiveRate: ParseRate(out, ReceiveRatePattern),
			Output:      out,
			ExitErr:     err,
		}
		res := h.result
		h.mu.Unlock()

		metrics.WorkloadRate.WithLabelValues("send").Set(res.SendRate)
		metrics.WorkloadRate.WithLabelValues("receive").Set(res.ReceiveRate)
		r.logger.Info().
			Float64("send_rate", res.SendRate).
			Float64("receive_rate", res.ReceiveRate).
			Err(err).
			Msg("workload driver finished")
		close(h.done)
	}()

	return h, nil
}

// Run starts the driver and blocks until it finishes
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	h, err := r.Start(ctx, spec)
	if err != nil {
		return Result{}, err
	}
	return h.Wait(), nil
}
