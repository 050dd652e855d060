// Package compute creates the cluster's servers and waits until every one
// of them accepts SSH sessions.
//
// Servers are created concurrently, one task per server. The phase only
// finishes once the number of servers the provider reports equals the
// number the cluster spec asks for and all of them passed the readiness probe.
package compute
