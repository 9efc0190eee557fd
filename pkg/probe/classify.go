package probe

import (
	"strings"

	"github.com/meridian-ops/drverify/pkg/types"
)

// The status endpoint returns free text. The contract here is deliberately
// narrow: only the tokens below are recognized, everything else maps to
// unknown. Matching is on whole tokens so that e.g. "downstream" never
// trips the "down" keyword. Do not add synonyms ad hoc; extend the table
// and its tests together.
var (
	connectedTokens    = []string{"running", "connected"}
	disconnectedTokens = []string{"terminated", "stopped", "disconnected", "shutdown", "down"}
)

// Classify maps a raw replication status text to a link state
func Classify(raw string) types.LinkState {
	tokens := tokenize(raw)
	for _, t := range connectedTokens {
		if tokens[t] {
			return types.LinkConnected
		}
	}
	for _, t := range disconnectedTokens {
		if tokens[t] {
			return types.LinkDisconnected
		}
	}
	return types.LinkUnknown
}

func tokenize(raw string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}
