package promote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/mgmt"
	"github.com/meridian-ops/drverify/pkg/storage"
	"github.com/meridian-ops/drverify/pkg/types"
)

// State names the steps of the promotion/restoration machine. States only
// move forward; RestorationFailed is terminal.
type State string

const (
	StateDownstream           State = "downstream"
	StatePromotionRequested   State = "promotion_requested"
	StatePromoted             State = "promoted"
	StateValidated            State = "validated"
	StateRestorationRequested State = "restoration_requested"
	StateRestored             State = "restored"
	StateRestorationFailed    State = "restoration_failed"
)

// ControlPlane is the slice of the management interface the machine
// drives. Satisfied by *mgmt.Client.
type ControlPlane interface {
	PromoteCluster(ctx context.Context, node types.Node, req mgmt.PromoteRequest) error
	EntityCount(ctx context.Context, node types.Node, namespace, entity string) (int64, bool, error)
	SetOperatingMode(ctx context.Context, node types.Node, mode string) error
	RestartService(ctx context.Context, node types.Node) error
	Ready(ctx context.Context, node types.Node) (bool, error)
	SetUpstreamEndpoints(ctx context.Context, node types.Node, eps mgmt.UpstreamEndpoints) error
	ConnectDownstream(ctx context.Context, node types.Node) error
}

// CarrierFinder re-discovers the active replication carrier after
// restoration. Satisfied by *discover.Discoverer.
type CarrierFinder interface {
	Discover(ctx context.Context, cluster types.ClusterTopology) (types.Node, bool)
}

// Entity identifies the tracked entity used for validation
type Entity struct {
	Namespace string
	Name      string
}

// Config tunes the machine's bounded waits
type Config struct {
	// ReadyAttempts is the fixed ceiling on readiness polls per node
	// after a restart
	ReadyAttempts int
	// ReadyInterval is the pause between readiness polls
	ReadyInterval time.Duration
	// RestoreTimeout bounds the entire restoration sequence
	RestoreTimeout time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		ReadyAttempts:  30,
		ReadyInterval:  2 * time.Second,
		RestoreTimeout: 5 * time.Minute,
	}
}

// Machine drives one downstream cluster through promotion, validation and
// guaranteed restoration
type Machine struct {
	cp      ControlPlane
	finder  CarrierFinder
	journal storage.Journal
	cfg     Config
	logger  zerolog.Logger
}

// NewMachine creates a promotion state machine
func NewMachine(cp ControlPlane, finder CarrierFinder, journal storage.Journal, cfg Config) *Machine {
	if cfg.ReadyAttempts <= 0 {
		cfg.ReadyAttempts = DefaultConfig().ReadyAttempts
	}
	if cfg.ReadyInterval <= 0 {
		cfg.ReadyInterval = DefaultConfig().ReadyInterval
	}
	if cfg.RestoreTimeout <= 0 {
		cfg.RestoreTimeout = DefaultConfig().RestoreTimeout
	}
	return &Machine{
		cp:      cp,
		finder:  finder,
		journal: journal,
		cfg:     cfg,
		logger:  log.WithComponent("promote"),
	}
}

// Execute promotes the cluster, validates the recovered data against the
// expected count, and restores the original downstream role.
//
// Restoration is unconditional: once the promotion request is accepted it
// runs on every exit path, whatever validation did, on a context detached
// from the caller's cancellation. Only a failure of the promotion request
// itself skips it. The returned record always reflects the final
// restoration outcome.
func (m *Machine) Execute(ctx context.Context, cluster types.ClusterTopology, upstream mgmt.UpstreamEndpoints, entity Entity, expected int64) (rec types.PromotionRecord, err error) {
	logger := m.logger.With().Str("cluster", cluster.ClusterID).Logger()
	m.transition(logger, StateDownstream, StatePromotionRequested)

	if perr := m.promote(ctx, cluster); perr != nil {
		return rec, fmt.Errorf("promotion of cluster %s not accepted: %w", cluster.ClusterID, perr)
	}

	rec = types.PromotionRecord{
		ClusterID:          cluster.ClusterID,
		PromotedAt:         time.Now().UTC(),
		RestorationOutcome: types.RestorationPending,
	}
	m.transition(logger, StatePromotionRequested, StatePromoted)
	m.record(logger, &rec)

	defer func() {
		// Validation may have failed or panicked; the cluster must not be
		// left in primary role either way.
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("validation panicked: %v", r))
		}

		m.transition(logger, StateValidated, StateRestorationRequested)
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.RestoreTimeout)
		defer cancel()

		if rerr := m.restore(restoreCtx, cluster, upstream); rerr != nil {
			rec.RestorationOutcome = types.RestorationFailed
			m.transition(logger, StateRestorationRequested, StateRestorationFailed)
			err = errors.Join(err, &types.RestorationError{
				ClusterID:   cluster.ClusterID,
				Remediation: fmt.Sprintf("cluster %s may still be in primary role; verify its operating mode and re-establish the downstream link manually before relying on this topology", cluster.ClusterID),
				Err:         rerr,
			})
		} else {
			rec.RestoredAt = time.Now().UTC()
			rec.RestorationOutcome = types.RestorationSuccess
			m.transition(logger, StateRestorationRequested, StateRestored)
		}
		m.record(logger, &rec)
	}()

	outcome, verr := m.validate(ctx, cluster, entity, expected)
	rec.ValidationOutcome = outcome
	m.transition(logger, StatePromoted, StateValidated)
	m.record(logger, &rec)
	if verr != nil {
		err = verr
	}
	return rec, err
}

// promote issues the promotion request against the first reachable member.
// Scope and start point are fixed: recover every replicated namespace from
// the earliest retained data so no gap is silently skipped.
func (m *Machine) promote(ctx context.Context, cluster types.ClusterTopology) error {
	req := mgmt.DefaultPromoteRequest()
	var lastErr error
	for _, node := range cluster.Nodes {
		if err := m.cp.PromoteCluster(ctx, node, req); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("cluster has no nodes")
	}
	return lastErr
}

// validate queries the now-primary cluster for the tracked entity's count.
// Full: observed >= expected. Partial: 0 < observed < expected. None:
// observed 0 or entity absent.
func (m *Machine) validate(ctx context.Context, cluster types.ClusterTopology, entity Entity, expected int64) (types.ValidationOutcome, error) {
	var lastErr error
	for _, node := range cluster.Nodes {
		observed, exists, err := m.cp.EntityCount(ctx, node, entity.Namespace, entity.Name)
		if err != nil {
			lastErr = err
			continue
		}
		if !exists {
			observed = 0
		}
		switch {
		case observed >= expected:
			return types.ValidationFull, nil
		case observed > 0:
			return types.ValidationPartial, &types.ValidationMismatchError{Expected: expected, Observed: observed}
		default:
			return types.ValidationNone, &types.ValidationMismatchError{Expected: expected, Observed: 0}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("cluster has no nodes")
	}
	return types.ValidationNone, fmt.Errorf("validation query failed on every member: %w", lastErr)
}

// restore returns the cluster to downstream role. The operating mode is a
// cluster-wide setting carried in every member's configuration, so steps
// (a) and (b) run against all members; reconnecting the link is issued on
// exactly one.
func (m *Machine) restore(ctx context.Context, cluster types.ClusterTopology, upstream mgmt.UpstreamEndpoints) error {
	// (a) flip every member back to downstream mode
	for _, node := range cluster.Nodes {
		if err := m.cp.SetOperatingMode(ctx, node, string(types.RoleDownstream)); err != nil {
			return fmt.Errorf("set operating mode on %s: %w", node.Address, err)
		}
	}

	// (b) restart all members and wait for each to report ready
	for _, node := range cluster.Nodes {
		if err := m.cp.RestartService(ctx, node); err != nil {
			return fmt.Errorf("restart service on %s: %w", node.Address, err)
		}
	}
	for _, node := range cluster.Nodes {
		if err := m.awaitReady(ctx, node); err != nil {
			return err
		}
	}

	first := cluster.Nodes[0]

	// (c) re-apply upstream endpoints for the schema and stream channels
	if err := m.cp.SetUpstreamEndpoints(ctx, first, upstream); err != nil {
		return fmt.Errorf("set upstream endpoints: %w", err)
	}

	// (d) re-initiate the downstream connection on one member
	if err := m.cp.ConnectDownstream(ctx, first); err != nil {
		return fmt.Errorf("connect downstream: %w", err)
	}

	// (e) confirm a carrier is discoverable again
	if _, found := m.finder.Discover(ctx, cluster); !found {
		return errors.New("no active carrier discovered after reconnect")
	}
	return nil
}

// awaitReady polls one node's readiness with a fixed attempt ceiling. An
// unresponsive control plane here is a genuine fault; retrying forever
// would only mask it.
func (m *Machine) awaitReady(ctx context.Context, node types.Node) error {
	for attempt := 1; attempt <= m.cfg.ReadyAttempts; attempt++ {
		ready, err := m.cp.Ready(ctx, node)
		if err == nil && ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("node %s not ready: %w", node.Address, ctx.Err())
		case <-time.After(m.cfg.ReadyInterval):
		}
	}
	return fmt.Errorf("node %s not ready after %d attempts", node.Address, m.cfg.ReadyAttempts)
}

func (m *Machine) transition(logger zerolog.Logger, from, to State) {
	logger.Info().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
}

// record journals the current promotion record; journal failures are
// logged, never allowed to interrupt the machine
func (m *Machine) record(logger zerolog.Logger, rec *types.PromotionRecord) {
	if m.journal == nil {
		return
	}
	if err := m.journal.PutPromotion(*rec); err != nil {
		logger.Error().Err(err).Msg("failed to journal promotion record")
	}
}
