package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ops/drverify/pkg/types"
)

// SchemaReplication verifies the structural (schema) channel: a namespace
// created upstream becomes visible on every downstream, and its deletion
// propagates too.
type SchemaReplication struct{}

func (SchemaReplication) Name() string          { return "schema-replication" }
func (SchemaReplication) Budget() time.Duration { return 5 * time.Minute }

func (SchemaReplication) Run(ctx context.Context, env *Env) (map[string]string, error) {
	upstream, ok := env.Topology.Upstream()
	if !ok {
		return nil, errors.New("topology has no upstream cluster")
	}
	downstreams, any := env.downstreams()
	if !any {
		return nil, &SkipError{Reason: "all downstream clusters are cross-region and --skip-cross-region is set"}
	}

	upNode := upstream.Nodes[0]
	namespace := fmt.Sprintf("%s-schema-%s", env.Opts.Namespace, uuid.NewString()[:8])

	if err := env.Mgmt.CreateNamespace(ctx, upNode, namespace); err != nil {
		return nil, fmt.Errorf("create namespace upstream: %w", err)
	}
	cleanup := func() {
		if env.Opts.NoCleanup {
			return
		}
		// Cleanup runs even when the assertions already failed.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		_ = env.Mgmt.DeleteNamespace(cctx, upNode, namespace)
	}
	defer cleanup()

	for _, cluster := range downstreams {
		if err := awaitNamespace(ctx, env, cluster, namespace, true); err != nil {
			return nil, err
		}
	}

	if env.Opts.NoCleanup {
		return map[string]string{"namespace": namespace}, nil
	}

	if err := env.Mgmt.DeleteNamespace(ctx, upNode, namespace); err != nil {
		return nil, fmt.Errorf("delete namespace upstream: %w", err)
	}
	for _, cluster := range downstreams {
		if err := awaitNamespace(ctx, env, cluster, namespace, false); err != nil {
			return nil, err
		}
	}
	return map[string]string{"namespace": namespace}, nil
}

func awaitNamespace(ctx context.Context, env *Env, cluster types.ClusterTopology, namespace string, wantExists bool) error {
	node := cluster.Nodes[0]
	verb := "appear on"
	if !wantExists {
		verb = "disappear from"
	}
	return waitFor(ctx, 2*time.Second,
		fmt.Sprintf("namespace %s to %s cluster %s", namespace, verb, cluster.ClusterID),
		func(ctx context.Context) (bool, error) {
			exists, err := env.Mgmt.NamespaceExists(ctx, node, namespace)
			if err != nil {
				return false, err
			}
			return exists == wantExists, nil
		})
}
