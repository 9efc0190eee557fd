package lag

import (
	"context"

	"github.com/meridian-ops/drverify/pkg/mgmt"
	"github.com/meridian-ops/drverify/pkg/types"
)

// MetricsSource reads the timestamp sequences for one entity from the
// replication metrics tables of an upstream and a downstream node
type MetricsSource struct {
	Client     *mgmt.Client
	Upstream   types.Node
	Downstream types.Node
	Entity     string
}

func (m *MetricsSource) UpstreamTimestamp(ctx context.Context) (int64, bool, error) {
	rows, err := m.Client.UpstreamMetrics(ctx, m.Upstream)
	if err != nil {
		return 0, false, err
	}
	ts, ok := mgmt.EntityTimestamp(rows, m.Entity)
	return ts, ok, nil
}

func (m *MetricsSource) DownstreamTimestamp(ctx context.Context) (int64, bool, error) {
	rows, err := m.Client.DownstreamMetrics(ctx, m.Downstream)
	if err != nil {
		return 0, false, err
	}
	ts, ok := mgmt.EntityTimestamp(rows, m.Entity)
	return ts, ok, nil
}
