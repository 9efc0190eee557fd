package types

import (
	"fmt"
	"time"
)

// ProbeError is a single-node network or remote-access failure. It is
// always recoverable: the caller skips to the next candidate.
type ProbeError struct {
	Node string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Node, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// NotYetVisibleError reports that a tracked entity did not appear on one
// side of the replication link within the wait budget. It is a sub-step
// timeout, not a crash.
type NotYetVisibleError struct {
	Entity string
	Side   string // "upstream" or "downstream"
	Waited time.Duration
}

func (e *NotYetVisibleError) Error() string {
	return fmt.Sprintf("entity %q not visible on %s after %s", e.Entity, e.Side, e.Waited)
}

// ValidationMismatchError reports a promoted cluster holding fewer entries
// than expected. Carried as a scenario failure, never a panic.
type ValidationMismatchError struct {
	Expected int64
	Observed int64
}

func (e *ValidationMismatchError) Error() string {
	return fmt.Sprintf("validation mismatch: observed %d of expected %d", e.Observed, e.Expected)
}

// RestorationError is terminal. The affected cluster may be left in primary
// role; Remediation tells the operator what to do about it.
type RestorationError struct {
	ClusterID   string
	Remediation string
	Err         error
}

func (e *RestorationError) Error() string {
	return fmt.Sprintf("restoration of cluster %s failed: %v (remediation: %s)", e.ClusterID, e.Err, e.Remediation)
}

func (e *RestorationError) Unwrap() error { return e.Err }

// ConfigError aborts the whole run before any scenario executes. Missing
// credentials or a malformed topology make every verification meaningless.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }
