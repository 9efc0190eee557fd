/*
Package lag measures replication lag for a tracked entity.

A run has three phases: wait for the entity to first appear upstream, wait
for it to appear downstream (the difference is the initial delay), then
sample both last-write timestamps on a fixed interval until the deadline
or until the driving workload exits. Per-sample lag is clamped to zero:
the two timestamp sequences advance independently and the downstream can
transiently appear ahead due to sampling skew.

Measurement is deliberately coarse: it polls last-write-visible timestamps
rather than tracking individual messages, trading precision for having no
write access to the data path.
*/
package lag
