/*
Package mgmt is the HTTP client for the clusters' management interface.

One Client serves every node in the topology; the target node is passed
per call. The surface covers the read side (replication status text,
upstream/downstream metrics tables, entity counts, namespace existence,
node roster) and the control side (promote, set upstream endpoints,
connect downstream, flip operating mode, restart, readiness).

Every call is blocking-with-timeout: requests carry the caller's context
and the client applies its own request timeout on top. The client does no
retries; retry policy belongs to the callers that know what a retry means
for their operation.
*/
package mgmt
