package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/drverify/pkg/config"
	"github.com/meridian-ops/drverify/pkg/types"
)

var testCreds = config.Credentials{Username: "admin", Password: "s3cret"}

// newTestServer wires an httptest server and a node pointing at it
func newTestServer(t *testing.T, handler http.Handler) (*Client, types.Node) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	node := types.Node{
		Address:   strings.TrimPrefix(srv.URL, "http://"),
		ClusterID: "test",
	}
	return NewClient(testCreds), node
}

func TestReplicationStatus(t *testing.T) {
	var gotUser, gotPass string
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/replication/status", r.URL.Path)
		gotUser, gotPass, _ = r.BasicAuth()
		w.Write([]byte("link state: running since 2026-08-01"))
	}))

	status, err := client.ReplicationStatus(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, "link state: running since 2026-08-01", status)
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "s3cret", gotPass)
}

func TestReplicationStatusRejectsNon200(t *testing.T) {
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.ReplicationStatus(context.Background(), node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestMetricsTables(t *testing.T) {
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/replication/metrics/upstream":
			json.NewEncoder(w).Encode([]MetricsRow{
				{Entity: "orders", LastTS: 1700000001000},
				{Entity: "audit", LastTS: 1700000002000},
			})
		case "/api/replication/metrics/downstream":
			json.NewEncoder(w).Encode([]MetricsRow{
				{Entity: "orders", LastTS: 1700000000500},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	up, err := client.UpstreamMetrics(context.Background(), node)
	require.NoError(t, err)
	require.Len(t, up, 2)

	ts, ok := EntityTimestamp(up, "orders")
	assert.True(t, ok)
	assert.Equal(t, int64(1700000001000), ts)

	_, ok = EntityTimestamp(up, "missing")
	assert.False(t, ok)

	down, err := client.DownstreamMetrics(context.Background(), node)
	require.NoError(t, err)
	require.Len(t, down, 1)
}

func TestEntityCount(t *testing.T) {
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/namespaces/prod/entities/orders":
			json.NewEncoder(w).Encode(map[string]any{"name": "orders", "count": 1200})
		default:
			http.NotFound(w, r)
		}
	}))

	count, exists, err := client.EntityCount(context.Background(), node, "prod", "orders")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(1200), count)

	// 404 is a definitive absent, not an error
	count, exists, err = client.EntityCount(context.Background(), node, "prod", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int64(0), count)
}

func TestNamespaceLifecycle(t *testing.T) {
	created := map[string]bool{}
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/namespaces/")
		switch r.Method {
		case http.MethodPut:
			created[name] = true
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			delete(created, name)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if created[name] {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		}
	}))
	ctx := context.Background()

	exists, err := client.NamespaceExists(ctx, node, "dr-check")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.CreateNamespace(ctx, node, "dr-check"))

	exists, err = client.NamespaceExists(ctx, node, "dr-check")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.DeleteNamespace(ctx, node, "dr-check"))

	exists, err = client.NamespaceExists(ctx, node, "dr-check")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoster(t *testing.T) {
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/nodes", r.URL.Path)
		json.NewEncoder(w).Encode([]RosterEntry{
			{Name: "node-1", Running: true},
			{Name: "node-2", Running: false},
		})
	}))

	roster, err := client.Roster(context.Background(), node)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.True(t, roster[0].Running)
	assert.False(t, roster[1].Running)
}

func TestPromoteCluster(t *testing.T) {
	var got PromoteRequest
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/replication/promote", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))

	err := client.PromoteCluster(context.Background(), node, DefaultPromoteRequest())
	require.NoError(t, err)
	assert.Equal(t, "all", got.Scope)
	assert.Equal(t, "earliest", got.StartPoint)
}

func TestRestoreEndpoints(t *testing.T) {
	var paths []string
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	ctx := context.Background()

	require.NoError(t, client.SetOperatingMode(ctx, node, "downstream"))
	require.NoError(t, client.RestartService(ctx, node))
	require.NoError(t, client.SetUpstreamEndpoints(ctx, node, UpstreamEndpoints{
		SchemaEndpoints: []string{"core-1:5552"},
		StreamEndpoints: []string{"core-1:5552"},
	}))
	require.NoError(t, client.ConnectDownstream(ctx, node))

	ready, err := client.Ready(ctx, node)
	require.NoError(t, err)
	assert.True(t, ready)

	assert.Equal(t, []string{
		"PUT /api/node/mode",
		"POST /api/node/restart",
		"POST /api/replication/upstreams",
		"POST /api/replication/connect",
		"GET /api/node/ready",
	}, paths)
}

func TestReadyNotReady(t *testing.T) {
	client, node := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	ready, err := client.Ready(context.Background(), node)
	require.NoError(t, err)
	assert.False(t, ready)
}
