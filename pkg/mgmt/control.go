package mgmt

import (
	"context"
	"net/http"

	"github.com/meridian-ops/drverify/pkg/types"
)

// Control operations. Each maps to a single idempotent-intent remote
// command against one node's management interface.

// PromoteRequest carries the recovery scope and start point for a cluster
// promotion. Scope "all" recovers every replicated virtual namespace;
// start point "earliest" recovers from the earliest retained data so no
// gap is silently skipped.
type PromoteRequest struct {
	Scope      string `json:"scope"`
	StartPoint string `json:"start_point"`
}

// DefaultPromoteRequest is the promotion the state machine always issues
func DefaultPromoteRequest() PromoteRequest {
	return PromoteRequest{Scope: "all", StartPoint: "earliest"}
}

// PromoteCluster asks the cluster to switch to primary role and recover
// replicated data. Blocks until the request is accepted; data visibility
// is validated separately.
func (c *Client) PromoteCluster(ctx context.Context, node types.Node, req PromoteRequest) error {
	return c.doJSON(ctx, http.MethodPost, node, "/api/replication/promote", req, nil)
}

// UpstreamEndpoints carries the endpoints for the two replication
// channels: structural (schema) and data (stream).
type UpstreamEndpoints struct {
	SchemaEndpoints []string `json:"schema_endpoints"`
	StreamEndpoints []string `json:"stream_endpoints"`
}

// SetUpstreamEndpoints re-applies the upstream endpoint configuration for
// both replication channels
func (c *Client) SetUpstreamEndpoints(ctx context.Context, node types.Node, eps UpstreamEndpoints) error {
	return c.doJSON(ctx, http.MethodPost, node, "/api/replication/upstreams", eps, nil)
}

// ConnectDownstream re-initiates the downstream replication connection.
// Issued against exactly one member; the cluster elects which member ends
// up carrying the link.
func (c *Client) ConnectDownstream(ctx context.Context, node types.Node) error {
	return c.doJSON(ctx, http.MethodPost, node, "/api/replication/connect", nil, nil)
}

// SetOperatingMode flips one node's operating-mode configuration. The mode
// is a cluster-wide setting carried in each member's configuration, so a
// role change must be applied to every member.
func (c *Client) SetOperatingMode(ctx context.Context, node types.Node, mode string) error {
	body := struct {
		Mode string `json:"mode"`
	}{Mode: mode}
	return c.doJSON(ctx, http.MethodPut, node, "/api/node/mode", body, nil)
}

// RestartService restarts the replicating service on one node
func (c *Client) RestartService(ctx context.Context, node types.Node) error {
	return c.doJSON(ctx, http.MethodPost, node, "/api/node/restart", nil, nil)
}

// Ready reports whether one node's service is up and accepting requests
func (c *Client) Ready(ctx context.Context, node types.Node) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, node, "/api/node/ready", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
