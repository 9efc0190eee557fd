/*
Package metrics exposes Prometheus collectors for drverify.

Collectors are package-level and registered at init. During long soak runs
the CLI can expose them over HTTP via Serve (--metrics-addr); for short
runs they only feed the final report.
*/
package metrics
