// Package provisioning provides shared types, interfaces, and orchestration for cluster provisioning.
//
// # Subpackages
//
//   - infrastructure/: network, firewall, SSH key, placement groups, API load balancer
//   - compute/: server definitions, concurrent creation, reachability barrier
//   - cluster/: k3s bootstrap of the leader, then followers, plus token and kubeconfig
//   - nodes/: node labels and taints
//   - upgrade/: system-upgrade-controller Plans
//   - destroy/: teardown in dependency order
//
// # Core Types
//
// Context carries the cluster spec, state, infrastructure client, SSH executor and observer.
// Phase defines a provisioning step with Name() and Provision() methods.
// State accumulates results from each phase (network, servers, token, kubeconfig).
package provisioning
