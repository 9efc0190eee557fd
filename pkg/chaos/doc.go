/*
Package chaos models fault injection as apply/heal pairs.

Every action exposed to the core is an Action with a guaranteed inverse;
RunWithHeal enforces that the inverse runs on every exit path of the
observation body, on a detached context, so a failed or cancelled scenario
never leaves a fault in place. The mechanics of injecting faults are
delegated to an external runner binary.
*/
package chaos
