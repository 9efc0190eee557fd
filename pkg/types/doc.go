/*
Package types defines the core data structures used throughout drverify.

This package contains the domain model for replication verification:
cluster topology, node identity, replication link classification, lag
samples and statistics, promotion records, and scenario results. It also
defines the error taxonomy shared by every component.

# Architecture

The topology registry (Topology, ClusterTopology, Node) is loaded once at
startup and treated as immutable for the life of a run; components receive
it by reference and never mutate it.

Transient observations (LinkState, LagSample) are recomputed on every call
and never cached across scenarios. Aggregates (LagStatistics) distinguish
"no data" from "zero lag" via SampleCount.

PromotionRecord is the durability anchor of the promotion state machine:
it exists from the moment a promotion is accepted, and a record that never
acquires a restoration outcome is a terminal condition requiring operator
action.

# Error taxonomy

  - ProbeError: single-node failure, recovered by skipping the candidate
  - NotYetVisibleError: entity absent within a wait budget (sub-step timeout)
  - ValidationMismatchError: promoted count below expected
  - RestorationError: terminal, carries a remediation hint
  - ConfigError: the only error class that aborts an entire run

All other failures stop at the scenario boundary and are recorded as
ScenarioResults.
*/
package types
