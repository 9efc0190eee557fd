/*
Package storage persists the run journal in an embedded BoltDB database.

Three buckets: runs (append order by sequence), results (one sub-bucket
per run, append-only), promotions (keyed by cluster and promotion time,
upserted on every state-machine transition).

The journal exists for one reason beyond reporting: a PromotionRecord is
written the moment a promotion is accepted, so if the process dies before
restoration completes, `drverify report` still shows the pending record
and the operator knows the cluster may be left in primary role.
*/
package storage
