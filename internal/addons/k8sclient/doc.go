// Package k8sclient talks to the cluster API once k3s is up: it labels and
// taints nodes, manages the hcloud secret the cloud controller reads, and
// creates or updates system-upgrade-controller Plans through the dynamic
// client. Clients are built directly from kubeconfig bytes.
package k8sclient
