package infrastructure

import (
	"github.com/imamik/k3zner/internal/provisioning"
)

const phase = "infrastructure"

// Provisioner handles infrastructure provisioning.
type Provisioner struct{}

// NewProvisioner creates a new infrastructure provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface. Resources are
// ensured in dependency order: network, firewall, SSH key, placement
// groups, then the load balancer for HA clusters.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if err := p.ProvisionNetwork(ctx); err != nil {
		return err
	}
	if err := p.ProvisionFirewall(ctx); err != nil {
		return err
	}
	if err := p.ProvisionSSHKey(ctx); err != nil {
		return err
	}
	if err := p.ProvisionPlacementGroups(ctx); err != nil {
		return err
	}
	if ctx.Spec.IsHA() {
		if err := p.ProvisionLoadBalancer(ctx); err != nil {
			return err
		}
	}
	return nil
}
