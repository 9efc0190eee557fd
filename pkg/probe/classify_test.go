package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-ops/drverify/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.LinkState
	}{
		{"running", "link running since 2026-08-01", types.LinkConnected},
		{"connected", "state: connected", types.LinkConnected},
		{"terminated", "link terminated by peer", types.LinkDisconnected},
		{"stopped", "stopped", types.LinkDisconnected},
		{"shutdown", "service shutdown in progress", types.LinkDisconnected},
		{"down", "link is down", types.LinkDisconnected},
		{"empty", "", types.LinkUnknown},
		{"gibberish", "fhqwhgads", types.LinkUnknown},
		{"unrecognized vocabulary", "link is starting", types.LinkUnknown},
		{"case insensitive", "RUNNING", types.LinkConnected},
		{"running wins over noise", "downstream link running", types.LinkConnected},
		// "downstream" must not trip the "down" keyword
		{"downstream alone is unknown", "downstream link idle", types.LinkUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}
