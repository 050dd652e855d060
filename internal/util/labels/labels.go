// Package labels builds the Hetzner Cloud labels k3zner puts on every
// resource it creates, and the selectors used to find them again.
//
// The cluster and role keys are unprefixed because the API load balancer
// targets masters through the selector "cluster=<name>,role=master".
package labels

import (
	"maps"
	"slices"
	"strings"
)

// Label keys.
const (
	KeyCluster   = "cluster"
	KeyRole      = "role"
	KeyPool      = "pool"
	KeyManagedBy = "managed-by"
)

// Role values.
const (
	RoleMaster = "master"
	RoleWorker = "worker"
)

// ManagedBy is the value of KeyManagedBy.
const ManagedBy = "k3zner"

// LabelBuilder builds a label map for one resource.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder starts a label set owned by the given cluster.
func NewLabelBuilder(cluster string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyCluster:   cluster,
			KeyManagedBy: ManagedBy,
		},
	}
}

// WithRole sets the server role.
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	return lb
}

// WithPool sets the pool name.
func (lb *LabelBuilder) WithPool(pool string) *LabelBuilder {
	if pool != "" {
		lb.labels[KeyPool] = pool
	}
	return lb
}

// Merge copies extra into the set. Existing keys are overwritten.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	maps.Copy(lb.labels, extra)
	return lb
}

// Build returns a copy of the labels.
func (lb *LabelBuilder) Build() map[string]string {
	return maps.Clone(lb.labels)
}

// Selector renders labels as an API label selector with keys in sorted order.
func Selector(labels map[string]string) string {
	parts := make([]string, 0, len(labels))
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

// SelectorForCluster selects every resource of a cluster.
func SelectorForCluster(cluster string) string {
	return KeyCluster + "=" + cluster
}

// SelectorForRole selects the servers of a cluster with the given role.
func SelectorForRole(cluster, role string) string {
	return Selector(map[string]string{KeyCluster: cluster, KeyRole: role})
}
