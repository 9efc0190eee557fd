package discover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ops/drverify/pkg/probe"
	"github.com/meridian-ops/drverify/pkg/types"
)

// mapStatusClient answers per-address; addresses without an entry fail
// with a transport error.
type mapStatusClient struct {
	statuses map[string]string
}

func (m *mapStatusClient) ReplicationStatus(ctx context.Context, node types.Node) (string, error) {
	s, ok := m.statuses[node.Address]
	if !ok {
		return "", errors.New("dial tcp: connection refused")
	}
	return s, nil
}

func cluster(addrs ...string) types.ClusterTopology {
	c := types.ClusterTopology{ClusterID: "dr", Role: types.RoleDownstream}
	for _, a := range addrs {
		c.Nodes = append(c.Nodes, types.Node{Address: a, ClusterID: "dr"})
	}
	return c
}

func newDiscoverer(statuses map[string]string) *Discoverer {
	return NewDiscoverer(probe.NewProber(&mapStatusClient{statuses: statuses}, time.Second))
}

func TestDiscoverFindsConnectedCandidate(t *testing.T) {
	d := newDiscoverer(map[string]string{
		"n1:15672": "link idle",
		"n2:15672": "link running",
		"n3:15672": "link idle",
	})

	node, found := d.Discover(context.Background(), cluster("n1:15672", "n2:15672", "n3:15672"))
	require.True(t, found)
	assert.Equal(t, "n2:15672", node.Address)
}

func TestDiscoverNoneConnected(t *testing.T) {
	d := newDiscoverer(map[string]string{
		"n1:15672": "terminated",
		"n2:15672": "idle",
		"n3:15672": "stopped",
	})

	_, found := d.Discover(context.Background(), cluster("n1:15672", "n2:15672", "n3:15672"))
	assert.False(t, found)
}

func TestDiscoverResultIsAlwaysACandidate(t *testing.T) {
	c := cluster("n1:15672", "n2:15672", "n3:15672")
	d := newDiscoverer(map[string]string{
		"n1:15672": "running",
		"other":    "running",
	})

	node, found := d.Discover(context.Background(), c)
	require.True(t, found)

	member := false
	for _, n := range c.Nodes {
		if n.Address == node.Address {
			member = true
		}
	}
	assert.True(t, member, "discovered node must be one of the candidates")
}

func TestDiscoverUnreachableCandidateIsNonFatal(t *testing.T) {
	// n1 has no map entry and fails with a transport error; discovery of
	// the rest continues.
	d := newDiscoverer(map[string]string{
		"n3:15672": "link running",
	})

	node, found := d.Discover(context.Background(), cluster("n1:15672", "n2:15672", "n3:15672"))
	require.True(t, found)
	assert.Equal(t, "n3:15672", node.Address)
}

func TestDiscoverIsIdempotentAgainstStableCluster(t *testing.T) {
	d := newDiscoverer(map[string]string{
		"n1:15672": "idle",
		"n2:15672": "running",
		"n3:15672": "idle",
	})
	c := cluster("n1:15672", "n2:15672", "n3:15672")

	first, ok1 := d.Discover(context.Background(), c)
	second, ok2 := d.Discover(context.Background(), c)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first.Address, second.Address)
}

func TestDiscoverEmptyCandidateList(t *testing.T) {
	d := newDiscoverer(nil)
	_, found := d.Discover(context.Background(), types.ClusterTopology{ClusterID: "empty"})
	assert.False(t, found)
}
