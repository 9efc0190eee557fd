/*
Package discover finds the carrier node of a downstream cluster.

Exactly one member of a downstream cluster hosts the active replication
connection at any time, but which member is a runtime property the cluster
decides for itself. Discover performs one bounded parallel probe pass over
the ordered candidate list and returns the first connected node, tolerating
any subset of candidates being unreachable.
*/
package discover
