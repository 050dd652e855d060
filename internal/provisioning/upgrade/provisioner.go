package upgrade

import (
	"fmt"
	"io"
	"os"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/provisioning"
)

const phase = "upgrade"

// ProvisionerOptions contains options for the upgrade provisioner.
type ProvisionerOptions struct {
	TargetVersion string
	// Force allows a target that is not newer than the current version.
	Force bool
	// DryRun prints the Plans to Out instead of applying them.
	DryRun bool
	Out    io.Writer
}

// Provisioner handles cluster upgrades.
type Provisioner struct {
	opts ProvisionerOptions
}

// NewProvisioner creates a new upgrade provisioner.
func NewProvisioner(opts ProvisionerOptions) *Provisioner {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Provisioner{opts: opts}
}

// Name returns the phase name.
func (p *Provisioner) Name() string {
	return phase
}

// Provision submits the upgrade Plans and records the new version in the
// spec file.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	spec := ctx.Spec
	if err := config.ValidateUpgrade(spec.K3sVersion, p.opts.TargetVersion, p.opts.Force).Err(); err != nil {
		return err
	}

	plans := Plans(p.opts.TargetVersion, spec.WorkerCount())

	if p.opts.DryRun {
		out, err := RenderPlans(plans)
		if err != nil {
			return err
		}
		_, err = p.opts.Out.Write(out)
		return err
	}

	if len(ctx.State.Kubeconfig) == 0 {
		// #nosec G304 -- path comes from the operator's spec file
		data, err := os.ReadFile(spec.KubeconfigPath)
		if err != nil {
			return fmt.Errorf("failed to read kubeconfig: %w", err)
		}
		ctx.State.Kubeconfig = data
	}
	client, err := ctx.KubeClient()
	if err != nil {
		return err
	}

	for _, plan := range plans {
		if err := client.ApplyPlan(ctx, plan); err != nil {
			return err
		}
		ctx.Observer.Printf("[%s] Plan %s/%s applied", phase, plan.GetNamespace(), plan.GetName())
	}

	if path := spec.Path(); path != "" {
		if err := config.UpdateK3sVersion(path, p.opts.TargetVersion); err != nil {
			return fmt.Errorf("plans applied but failed to record the new version: %w", err)
		}
	}

	ctx.Observer.Printf("[%s] Upgrade to %s started. Run `watch kubectl get nodes` to follow it; "+
		"the API server may be briefly unavailable while masters upgrade.", phase, p.opts.TargetVersion)
	return nil
}
