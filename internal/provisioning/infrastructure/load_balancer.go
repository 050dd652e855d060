package infrastructure

import (
	"fmt"

	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/labels"
	"github.com/imamik/k3zner/internal/util/naming"
)

const (
	apiLoadBalancerType = "lb11"
	apiPort             = 6443
)

// ProvisionLoadBalancer ensures the load balancer in front of the masters'
// API servers. It targets masters by label over the private network.
func (p *Provisioner) ProvisionLoadBalancer(ctx *provisioning.Context) error {
	if ctx.State.Network == nil {
		return fmt.Errorf("network must be provisioned before the load balancer")
	}

	lb, err := ctx.Infra.EnsureLoadBalancer(ctx, LoadBalancerOpts(ctx.Spec.ClusterName, ctx.Spec.MastersLocation(), ctx.State.Network.ID))
	if err != nil {
		return fmt.Errorf("failed to ensure load balancer: %w", err)
	}
	ctx.State.LoadBalancer = lb
	return nil
}

// LoadBalancerOpts describes the API load balancer of a cluster.
func LoadBalancerOpts(cluster, location string, networkID int64) hcloud_internal.LoadBalancerOpts {
	return hcloud_internal.LoadBalancerOpts{
		Name:            naming.APILoadBalancer(cluster),
		Type:            apiLoadBalancerType,
		Location:        location,
		NetworkID:       networkID,
		ListenPort:      apiPort,
		DestinationPort: apiPort,
		TargetSelector:  labels.SelectorForRole(cluster, labels.RoleMaster),
		Labels:          labels.NewLabelBuilder(cluster).Build(),
	}
}
