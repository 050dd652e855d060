// Package naming derives the deterministic resource names that let every
// run find the resources created by an earlier one.
package naming

import "fmt"

func Network(cluster string) string {
	return cluster
}

func Firewall(cluster string) string {
	return cluster
}

func SSHKey(cluster string) string {
	return cluster
}

func APILoadBalancer(cluster string) string {
	return fmt.Sprintf("%s-api", cluster)
}

// MastersPlacementGroup names the spread group shared by all masters.
func MastersPlacementGroup(cluster string) string {
	return fmt.Sprintf("%s-masters", cluster)
}

// PlacementGroup names the spread group of a worker pool.
func PlacementGroup(cluster, pool string) string {
	return fmt.Sprintf("%s-%s", cluster, pool)
}

// MasterInstanceID returns the instance ID of the n-th master, starting at 1.
func MasterInstanceID(n int) string {
	return fmt.Sprintf("master%d", n)
}

// WorkerInstanceID returns the instance ID of the n-th worker of a pool, starting at 1.
func WorkerInstanceID(pool string, n int) string {
	return fmt.Sprintf("pool-%s-worker%d", pool, n)
}

// Server builds the server name, which doubles as the Kubernetes node name.
func Server(cluster, instanceType, instanceID string) string {
	return fmt.Sprintf("%s-%s-%s", cluster, instanceType, instanceID)
}
