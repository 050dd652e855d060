// Package orchestration provides high-level workflow coordination for cluster provisioning.
//
// This package orchestrates the provisioning workflow by delegating to specialized
// provisioners in the internal/provisioning subpackages. It defines the execution order
// and coordinates state flow between provisioning phases.
//
// # Workflow
//
// Create runs the following phases in order:
//  1. Validation - Local and remote configuration checks
//  2. Infrastructure - Network, firewall, SSH key, placement groups, load balancer
//  3. Compute - Server creation and SSH readiness
//  4. Bootstrap - k3s on the leader, then on every follower
//  5. Nodes - Labels and taints
//  6. Addons - hcloud secret and add-on manifests
//
// Delete and Upgrade run a single phase each.
//
// # Usage
//
//	reconciler := orchestration.NewReconciler(infraClient, sshClient, spec)
//	state, err := reconciler.Create(ctx)
//
// Create is idempotent: it can be re-run after a failure and only makes the
// changes still missing.
package orchestration
