package infrastructure

import (
	"fmt"

	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/labels"
)

// ProvisionNetwork ensures the private network. A network named by
// existing_network is looked up only and never created.
func (p *Provisioner) ProvisionNetwork(ctx *provisioning.Context) error {
	spec := ctx.Spec

	if spec.ExistingNetwork != "" {
		network, err := ctx.Infra.GetNetwork(ctx, spec.ExistingNetwork)
		if err != nil {
			return fmt.Errorf("failed to look up existing network %s: %w", spec.ExistingNetwork, err)
		}
		if network == nil {
			return fmt.Errorf("existing network %s not found", spec.ExistingNetwork)
		}
		provisioning.LogResourceExists(ctx.Observer, phase, "network", network.Name)
		ctx.State.Network = network
		return nil
	}

	subnet, err := spec.SubnetCIDR()
	if err != nil {
		return err
	}

	network, err := ctx.Infra.EnsureNetwork(ctx, hcloud_internal.NetworkOpts{
		Name:        spec.NetworkName(),
		IPRange:     spec.PrivateNetworkSubnet,
		SubnetRange: subnet,
		Zone:        spec.NetworkZone(),
		Labels:      labels.NewLabelBuilder(spec.ClusterName).Build(),
	})
	if err != nil {
		return fmt.Errorf("failed to ensure network: %w", err)
	}
	ctx.State.Network = network
	return nil
}
