package addons

import (
	"github.com/imamik/k3zner/internal/provisioning"
)

// Phase installs the add-ons as the last step of cluster creation.
type Phase struct {
	opts []InstallerOption
}

// NewPhase returns the add-on phase. opts configure the Installer it
// builds once the cluster API is reachable.
func NewPhase(opts ...InstallerOption) *Phase {
	return &Phase{opts: opts}
}

// Name implements the provisioning.Phase interface.
func (p *Phase) Name() string {
	return "addons"
}

// Provision implements the provisioning.Phase interface.
func (p *Phase) Provision(ctx *provisioning.Context) error {
	client, err := ctx.KubeClient()
	if err != nil {
		return err
	}
	return NewInstaller(client, p.opts...).Install(ctx, ctx.Spec, ctx.Spec.KubeconfigPath)
}
