package workload

import (
	"regexp"
	"strconv"
)

// The driver summarizes its run with two rate lines, e.g.
//
//	sending rate avg: 10233 msg/s
//	receiving rate avg: 10198 msg/s
//
// Absence of a line means the rate is unknown and parses as 0; the driver
// omits the receive line when no consumers were requested.
var (
	SendRatePattern    = regexp.MustCompile(`sending rate avg:\s*([0-9]+(?:\.[0-9]+)?)\s*msg/s`)
	ReceiveRatePattern = regexp.MustCompile(`receiving rate avg:\s*([0-9]+(?:\.[0-9]+)?)\s*msg/s`)
)

// ParseRate extracts the last occurrence of a rate pattern from driver
// output. Missing or malformed values yield 0, never an error.
func ParseRate(output string, pattern *regexp.Regexp) float64 {
	matches := pattern.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]
	v, err := strconv.ParseFloat(last[1], 64)
	if err != nil {
		return 0
	}
	return v
}
