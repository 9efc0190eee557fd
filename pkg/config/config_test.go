package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/drverify/pkg/types"
)

const validTopology = `
clusters:
  - id: core
    role: upstream
    nodes:
      - address: core-1.example.com:15672
        datacenter: dc1
      - address: core-2.example.com:15672
        datacenter: dc2
  - id: dr-east
    role: downstream
    nodes:
      - address: dr-east-1.example.com:15672
  - id: dr-apac
    role: downstream
    peer_class: cross-region
    nodes:
      - address: dr-apac-1.example.com:15672
`

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology([]byte(validTopology))
	require.NoError(t, err)

	require.Len(t, topo.Clusters, 3)

	up, ok := topo.Upstream()
	require.True(t, ok)
	assert.Equal(t, "core", up.ClusterID)
	assert.Len(t, up.Nodes, 2)
	assert.Equal(t, "core", up.Nodes[0].ClusterID)
	assert.Equal(t, "dc1", up.Nodes[0].Datacenter)

	downs := topo.Downstreams()
	require.Len(t, downs, 2)
	// peer_class defaults to regional when omitted
	assert.Equal(t, types.PeerRegional, downs[0].PeerClass)
	assert.Equal(t, types.PeerCrossRegion, downs[1].PeerClass)
}

func TestParseTopologyRejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", `{{{`},
		{"missing role", `
clusters:
  - id: core
    nodes:
      - address: a.example.com:15672
  - id: dr
    role: downstream
    nodes:
      - address: b.example.com:15672
`},
		{"unknown role", `
clusters:
  - id: core
    role: primary
    nodes:
      - address: a.example.com:15672
  - id: dr
    role: downstream
    nodes:
      - address: b.example.com:15672
`},
		{"address without port", `
clusters:
  - id: core
    role: upstream
    nodes:
      - address: a.example.com
  - id: dr
    role: downstream
    nodes:
      - address: b.example.com:15672
`},
		{"no downstreams", `
clusters:
  - id: core
    role: upstream
    nodes:
      - address: a.example.com:15672
  - id: core2
    role: upstream
    nodes:
      - address: b.example.com:15672
`},
		{"two upstreams", `
clusters:
  - id: core
    role: upstream
    nodes:
      - address: a.example.com:15672
  - id: core2
    role: upstream
    nodes:
      - address: b.example.com:15672
  - id: dr
    role: downstream
    nodes:
      - address: c.example.com:15672
`},
		{"duplicate cluster id", `
clusters:
  - id: dr
    role: upstream
    nodes:
      - address: a.example.com:15672
  - id: dr
    role: downstream
    nodes:
      - address: b.example.com:15672
`},
		{"single cluster", `
clusters:
  - id: core
    role: upstream
    nodes:
      - address: a.example.com:15672
`},
		{"cluster without nodes", `
clusters:
  - id: core
    role: upstream
    nodes:
      - address: a.example.com:15672
  - id: dr
    role: downstream
    nodes: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopology([]byte(tt.yaml))
			require.Error(t, err)

			var cerr *types.ConfigError
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validTopology), 0o644))

	topo, err := LoadTopology(path)
	require.NoError(t, err)
	assert.Len(t, topo.Clusters, 3)
}

func TestLoadTopologyMissingFile(t *testing.T) {
	_, err := LoadTopology(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var cerr *types.ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestResolveCredentialsPrecedence(t *testing.T) {
	t.Setenv(EnvUsername, "env-user")
	t.Setenv(EnvPassword, "env-pass")

	creds, err := ResolveCredentials("flag-user", "flag-pass")
	require.NoError(t, err)
	assert.Equal(t, "flag-user", creds.Username)
	assert.Equal(t, "flag-pass", creds.Password)

	creds, err = ResolveCredentials("", "")
	require.NoError(t, err)
	assert.Equal(t, "env-user", creds.Username)
	assert.Equal(t, "env-pass", creds.Password)

	creds, err = ResolveCredentials("flag-user", "")
	require.NoError(t, err)
	assert.Equal(t, "flag-user", creds.Username)
	assert.Equal(t, "env-pass", creds.Password)
}

func TestResolveCredentialsMissingUsername(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvPassword, "pass")

	_, err := ResolveCredentials("", "")
	require.Error(t, err)

	var cerr *types.ConfigError
	assert.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), EnvUsername)
}
