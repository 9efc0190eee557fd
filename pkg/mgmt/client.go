package mgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-ops/drverify/pkg/config"
	"github.com/meridian-ops/drverify/pkg/log"
	"github.com/meridian-ops/drverify/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Client talks to the management interface of individual cluster nodes.
// One client serves all nodes; the node address is passed per call.
type Client struct {
	http   *http.Client
	scheme string
	creds  config.Credentials
	logger zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTLS switches the client to https
func WithTLS() Option {
	return func(c *Client) { c.scheme = "https" }
}

// NewClient creates a management client authenticating with the given
// credentials
func NewClient(creds config.Credentials, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		scheme: "http",
		creds:  creds,
		logger: log.WithComponent("mgmt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(node types.Node, path string) string {
	return fmt.Sprintf("%s://%s%s", c.scheme, node.Address, path)
}

func (c *Client) do(ctx context.Context, method string, node types.Node, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(node, path), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// doJSON performs a request expecting a 2xx JSON response decoded into out
func (c *Client) doJSON(ctx context.Context, method string, node types.Node, path string, body, out any) error {
	resp, err := c.do(ctx, method, node, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// ReplicationStatus requests the free-text replication link status from one
// node. Classification of the text happens in pkg/probe; this returns the
// raw body.
func (c *Client) ReplicationStatus(ctx context.Context, node types.Node) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, node, "/api/replication/status", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("replication status: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("replication status: read body: %w", err)
	}
	return string(data), nil
}

// MetricsRow is one row of the upstream/downstream replication metrics
// table. LastTS is a monotonically increasing timestamp in milliseconds.
type MetricsRow struct {
	Entity string `json:"entity"`
	LastTS int64  `json:"last_ts"`
}

// UpstreamMetrics fetches the upstream-side replication metrics table
func (c *Client) UpstreamMetrics(ctx context.Context, node types.Node) ([]MetricsRow, error) {
	var rows []MetricsRow
	err := c.doJSON(ctx, http.MethodGet, node, "/api/replication/metrics/upstream", nil, &rows)
	return rows, err
}

// DownstreamMetrics fetches the downstream-side replication metrics table
func (c *Client) DownstreamMetrics(ctx context.Context, node types.Node) ([]MetricsRow, error) {
	var rows []MetricsRow
	err := c.doJSON(ctx, http.MethodGet, node, "/api/replication/metrics/downstream", nil, &rows)
	return rows, err
}

// EntityTimestamp selects the metrics row for one entity. The second
// return reports whether the entity appeared in the table at all.
func EntityTimestamp(rows []MetricsRow, entity string) (int64, bool) {
	for _, r := range rows {
		if r.Entity == entity {
			return r.LastTS, true
		}
	}
	return 0, false
}

// EntityCount returns the number of entries the cluster holds for an
// entity. A 404 means the entity does not exist and reports count 0 with
// exists false.
func (c *Client) EntityCount(ctx context.Context, node types.Node, namespace, entity string) (int64, bool, error) {
	path := fmt.Sprintf("/api/namespaces/%s/entities/%s", url.PathEscape(namespace), url.PathEscape(entity))
	resp, err := c.do(ctx, http.MethodGet, node, path, nil)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("entity count: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, false, fmt.Errorf("entity count: decode response: %w", err)
	}
	return out.Count, true, nil
}

// NamespaceExists checks whether a virtual namespace exists on the cluster
func (c *Client) NamespaceExists(ctx context.Context, node types.Node, namespace string) (bool, error) {
	path := "/api/namespaces/" + url.PathEscape(namespace)
	resp, err := c.do(ctx, http.MethodGet, node, path, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("namespace %s: unexpected status %d", namespace, resp.StatusCode)
	}
}

// CreateNamespace creates a virtual namespace
func (c *Client) CreateNamespace(ctx context.Context, node types.Node, namespace string) error {
	return c.doJSON(ctx, http.MethodPut, node, "/api/namespaces/"+url.PathEscape(namespace), nil, nil)
}

// DeleteNamespace removes a virtual namespace
func (c *Client) DeleteNamespace(ctx context.Context, node types.Node, namespace string) error {
	return c.doJSON(ctx, http.MethodDelete, node, "/api/namespaces/"+url.PathEscape(namespace), nil, nil)
}

// RosterEntry is one node in the cluster's own member roster
type RosterEntry struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// Roster returns the cluster membership as seen by one node
func (c *Client) Roster(ctx context.Context, node types.Node) ([]RosterEntry, error) {
	var roster []RosterEntry
	err := c.doJSON(ctx, http.MethodGet, node, "/api/nodes", nil, &roster)
	return roster, err
}
