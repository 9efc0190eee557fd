/*
Package probe issues single bounded replication-status queries against
individual nodes and classifies the free-text responses.

The classification contract is an explicit token table (see classify.go):
recognized tokens map to connected or disconnected, everything else,
including probe transport failures, is unknown. A probe never retries;
callers that want repetition re-invoke the probe as a whole.
*/
package probe
