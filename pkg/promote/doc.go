/*
Package promote drives the promotion/restoration state machine:

	Downstream -> PromotionRequested -> Promoted
	  -> Validated (full | partial | none)
	  -> RestorationRequested -> Downstream | RestorationFailed (terminal)

The invariant the package exists to uphold: once a promotion request has
been accepted, restoration is attempted on every exit path, regardless of
validation outcome, caller cancellation, or a panic in between. The
restore sequence itself runs bounded steps only (fixed readiness-poll
ceiling, overall timeout) and a failure is terminal: the record is left
with a failed restoration outcome and the error carries an explicit
remediation instruction for the operator.

Every record transition is journaled, so an interrupted run leaves the
pending promotion visible to `drverify report`.
*/
package promote
