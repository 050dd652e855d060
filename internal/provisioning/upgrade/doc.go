// Package upgrade rolls a cluster to a new k3s release through the
// system-upgrade-controller.
//
// Two Plans are submitted: one upgrading the masters one at a time, one
// upgrading the workers after the masters are done. The controller does
// the actual work; this package does not wait for it.
package upgrade
