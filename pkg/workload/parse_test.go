package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const driverOutput = `id: test-1, starting producer #0
id: test-1, sending rate avg: 10233 msg/s
id: test-1, receiving rate avg: 10198.5 msg/s
test completed
`

func TestParseRate(t *testing.T) {
	assert.Equal(t, 10233.0, ParseRate(driverOutput, SendRatePattern))
	assert.Equal(t, 10198.5, ParseRate(driverOutput, ReceiveRatePattern))
}

func TestParseRateTakesLastOccurrence(t *testing.T) {
	out := "sending rate avg: 100 msg/s\nsending rate avg: 250 msg/s\n"
	assert.Equal(t, 250.0, ParseRate(out, SendRatePattern))
}

func TestParseRateAbsentIsZeroNotError(t *testing.T) {
	// A producer-only run never prints the receive line.
	out := "sending rate avg: 512 msg/s\n"
	assert.Equal(t, 0.0, ParseRate(out, ReceiveRatePattern))
	assert.Equal(t, 0.0, ParseRate("", SendRatePattern))
	assert.Equal(t, 0.0, ParseRate("garbage output", SendRatePattern))
}

func TestSpecArgs(t *testing.T) {
	s := Spec{
		Target:       "amqp://core:5672",
		Entity:       "drverify-x",
		Producers:    2,
		Consumers:    1,
		MessageSize:  1024,
		Rate:         500,
		ConfirmBatch: 100,
	}
	args := s.args()
	assert.Contains(t, args, "--uri")
	assert.Contains(t, args, "amqp://core:5672")
	assert.Contains(t, args, "--rate")
	assert.Contains(t, args, "--confirm")

	// Unthrottled spec omits the rate flag entirely
	s.Rate = 0
	s.ConfirmBatch = 0
	args = s.args()
	assert.NotContains(t, args, "--rate")
	assert.NotContains(t, args, "--confirm")
}
