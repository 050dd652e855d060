// Package nodes applies the configured labels and taints to the cluster's
// Kubernetes nodes.
package nodes
