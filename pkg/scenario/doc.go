/*
Package scenario sequences the verification scenarios and aggregates their
results.

Scenarios are independent and run strictly one at a time: two scenarios
touching the same cluster concurrently would interleave replication state
transitions. Each scenario gets its own wall-clock budget; exceeding it is
a distinct timeout status, not an assertion failure. A failure, timeout or
panic in one scenario never prevents the remaining scenarios from running.

The aggregate status is "all non-skipped scenarios passed" and the CLI
exit code is the failed-scenario count, so a zero exit also covers an
entirely skipped run.
*/
package scenario
