package compute

import (
	"github.com/imamik/k3zner/internal/provisioning"
)

const phase = "compute"

// Provisioner handles compute resource provisioning.
type Provisioner struct{}

// NewProvisioner creates a new compute provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if err := p.ProvisionServers(ctx); err != nil {
		return err
	}
	if err := p.LoadTopology(ctx); err != nil {
		return err
	}
	return p.WaitForServers(ctx)
}
