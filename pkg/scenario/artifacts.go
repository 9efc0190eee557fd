package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ops/drverify/pkg/log"
)

// PrepareArtifacts creates the per-run namespace every scenario puts its
// test entities in and rewrites Opts.Namespace to it. The returned cleanup
// deletes the namespace, and the entities in it, when the run finishes;
// it honors NoCleanup and runs on a detached context so a cancelled run
// still tears its artifacts down.
func (e *Env) PrepareArtifacts(ctx context.Context) (func(), error) {
	upstream, ok := e.Topology.Upstream()
	if !ok {
		return nil, errors.New("topology has no upstream cluster")
	}
	node := upstream.Nodes[0]
	logger := log.WithComponent("artifacts")

	namespace := fmt.Sprintf("%s-%s", e.Opts.Namespace, uuid.NewString()[:8])
	if err := e.Mgmt.CreateNamespace(ctx, node, namespace); err != nil {
		return nil, fmt.Errorf("create run namespace %s: %w", namespace, err)
	}
	e.Opts.Namespace = namespace
	logger.Info().Str("namespace", namespace).Msg("run namespace created")

	cleanup := func() {
		if e.Opts.NoCleanup {
			logger.Info().Str("namespace", namespace).Msg("cleanup disabled, namespace left in place")
			return
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := e.Mgmt.DeleteNamespace(cctx, node, namespace); err != nil {
			logger.Error().Err(err).Str("namespace", namespace).Msg("failed to delete run namespace")
			return
		}
		logger.Info().Str("namespace", namespace).Msg("run namespace deleted")
	}
	return cleanup, nil
}
