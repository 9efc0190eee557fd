package chaos

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/types"
)

// Action is one fault injection with its guaranteed inverse. How the fault
// is actually applied (iptables, tc, process kill) lives behind the
// external runner; the core only sees the pair.
type Action interface {
	Name() string
	Apply(ctx context.Context) error
	Heal(ctx context.Context) error
}

const healTimeout = 30 * time.Second

// RunWithHeal applies an action, runs the observation body, and heals on
// every exit path, including a body panic. The heal runs on a detached
// context so that a cancelled scenario cannot leave the fault in place.
func RunWithHeal(ctx context.Context, action Action, body func(ctx context.Context) error) (err error) {
	logger := log.WithComponent("chaos").With().Str("action", action.Name()).Logger()

	if aerr := action.Apply(ctx); aerr != nil {
		return fmt.Errorf("apply %s: %w", action.Name(), aerr)
	}
	logger.Info().Msg("fault applied")

	defer func() {
		healCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healTimeout)
		defer cancel()
		if herr := action.Heal(healCtx); herr != nil {
			logger.Error().Err(herr).Msg("heal failed")
			err = errors.Join(err, fmt.Errorf("heal %s: %w", action.Name(), herr))
		} else {
			logger.Info().Msg("fault healed")
		}
	}()

	return body(ctx)
}

// ExecAction delegates apply/heal to an external fault-injection runner
// binary, one subcommand each
type ExecAction struct {
	name   string
	runner string
	apply  []string
	heal   []string
	logger zerolog.Logger
}

func newExecAction(name, runner string, apply, heal []string) *ExecAction {
	return &ExecAction{
		name:   name,
		runner: runner,
		apply:  apply,
		heal:   heal,
		logger: log.WithComponent("chaos"),
	}
}

func (a *ExecAction) Name() string { return a.name }

func (a *ExecAction) Apply(ctx context.Context) error {
	return a.run(ctx, a.apply)
}

func (a *ExecAction) Heal(ctx context.Context) error {
	return a.run(ctx, a.heal)
}

func (a *ExecAction) run(ctx context.Context, args []string) error {
	out, err := exec.CommandContext(ctx, a.runner, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (output: %s)", a.runner, args, err, out)
	}
	return nil
}

// NodeKill stops the replicating service on one node and restarts it on
// heal
func NodeKill(runner string, node types.Node) Action {
	return newExecAction(
		fmt.Sprintf("node-kill %s", node.Address),
		runner,
		[]string{"node", "kill", "--target", node.Address},
		[]string{"node", "start", "--target", node.Address},
	)
}

// Partition severs network traffic between two nodes
func Partition(runner string, a, b types.Node) Action {
	return newExecAction(
		fmt.Sprintf("partition %s/%s", a.Address, b.Address),
		runner,
		[]string{"net", "partition", "--between", a.Address, "--and", b.Address},
		[]string{"net", "heal", "--between", a.Address, "--and", b.Address},
	)
}

// PacketLoss injects a fixed packet-loss percentage on one node's link
func PacketLoss(runner string, node types.Node, percent int) Action {
	return newExecAction(
		fmt.Sprintf("packet-loss %s %d%%", node.Address, percent),
		runner,
		[]string{"net", "loss", "--target", node.Address, "--percent", fmt.Sprintf("%d", percent)},
		[]string{"net", "heal", "--target", node.Address},
	)
}
