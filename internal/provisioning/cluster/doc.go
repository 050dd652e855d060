// Package cluster installs k3s on the provisioned servers.
//
// The first master initializes the control plane. Once it is up, its join
// token and kubeconfig are captured and the remaining masters and all
// workers join concurrently.
package cluster
