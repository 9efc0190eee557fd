/*
Package workload invokes the external workload driver that generates
publish/consume load against the upstream cluster.

The driver is an opaque external process; this package only parameterizes
it, tracks its lifetime (Handle.Done doubles as the liveness handle for
concurrent lag sampling), and pattern-matches the two summary rates out of
its output. Unreported rates are 0, not errors.
*/
package workload
