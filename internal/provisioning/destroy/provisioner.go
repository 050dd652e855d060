package destroy

import (
	"context"
	"fmt"

	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/provisioning/infrastructure"
	"github.com/imamik/k3zner/internal/util/async"
	"github.com/imamik/k3zner/internal/util/labels"
	"github.com/imamik/k3zner/internal/util/naming"
)

const phase = "destroy"

// Provisioner handles cluster destruction.
type Provisioner struct{}

// NewProvisioner creates a new destroy provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision deletes the cluster's resources in reverse dependency order.
// Resources that are already gone are skipped, so a partial teardown can
// be re-run.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	spec := ctx.Spec
	ctx.Observer.Printf("[%s] Deleting cluster %s...", phase, spec.ClusterName)

	servers, err := ctx.Infra.GetServersByLabel(ctx, labels.SelectorForCluster(spec.ClusterName))
	if err != nil {
		return fmt.Errorf("failed to list cluster servers: %w", err)
	}
	ctx.State.Topology = provisioning.NewTopology(servers)

	steps := []func(*provisioning.Context) error{
		p.deleteLoadBalancer,
		p.deleteFirewall,
		p.deleteNetwork,
		p.deleteSSHKey,
		p.deletePlacementGroups,
		p.deleteServers,
		p.removeBackup,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	ctx.Observer.Printf("[%s] Cluster %s deleted", phase, spec.ClusterName)
	return nil
}

func (p *Provisioner) deleteLoadBalancer(ctx *provisioning.Context) error {
	if !ctx.Spec.IsHA() {
		return nil
	}
	name := naming.APILoadBalancer(ctx.Spec.ClusterName)
	if err := ctx.Infra.DeleteLoadBalancer(ctx, name, labels.SelectorForRole(ctx.Spec.ClusterName, labels.RoleMaster)); err != nil {
		return fmt.Errorf("failed to delete load balancer %s: %w", name, err)
	}
	return nil
}

// deleteFirewall detaches the cluster's servers first; the provider
// refuses to delete a firewall that is still applied.
func (p *Provisioner) deleteFirewall(ctx *provisioning.Context) error {
	name := naming.Firewall(ctx.Spec.ClusterName)
	all := ctx.State.Topology.All()
	ids := make([]int64, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	if len(ids) > 0 {
		if err := ctx.Infra.RemoveFirewallFromServers(ctx, name, ids); err != nil {
			return fmt.Errorf("failed to detach firewall %s: %w", name, err)
		}
	}
	if err := ctx.Infra.DeleteFirewall(ctx, name); err != nil {
		return fmt.Errorf("failed to delete firewall %s: %w", name, err)
	}
	return nil
}

func (p *Provisioner) deleteNetwork(ctx *provisioning.Context) error {
	if ctx.Spec.ExistingNetwork != "" {
		provisioning.LogResourceSkipped(ctx.Observer, phase, "network", ctx.Spec.ExistingNetwork)
		return nil
	}
	name := naming.Network(ctx.Spec.ClusterName)
	if err := ctx.Infra.DeleteNetwork(ctx, name); err != nil {
		return fmt.Errorf("failed to delete network %s: %w", name, err)
	}
	return nil
}

// deleteSSHKey removes the key only when this tool registered it, which is
// the case when it carries the cluster's name.
func (p *Provisioner) deleteSSHKey(ctx *provisioning.Context) error {
	name := naming.SSHKey(ctx.Spec.ClusterName)
	publicKey, err := infrastructure.ReadPublicKey(ctx.Spec.PublicSSHKeyPath)
	if err != nil {
		// Without the key material only a lookup by name is possible.
		publicKey = ""
	}
	key, err := ctx.Infra.FindSSHKey(ctx, name, publicKey)
	if err != nil {
		return fmt.Errorf("failed to look up ssh key: %w", err)
	}
	if key == nil {
		provisioning.LogResourceAbsent(ctx.Observer, phase, "ssh key", name)
		return nil
	}
	if key.Name != name {
		provisioning.LogResourceSkipped(ctx.Observer, phase, "ssh key", key.Name)
		return nil
	}
	if err := ctx.Infra.DeleteSSHKey(ctx, name); err != nil {
		return fmt.Errorf("failed to delete ssh key %s: %w", name, err)
	}
	return nil
}

func (p *Provisioner) deletePlacementGroups(ctx *provisioning.Context) error {
	for _, name := range provisioning.PlacementGroupNames(ctx.Spec) {
		if err := ctx.Infra.DeletePlacementGroup(ctx, name); err != nil {
			return fmt.Errorf("failed to delete placement group %s: %w", name, err)
		}
	}
	return nil
}

func (p *Provisioner) deleteServers(ctx *provisioning.Context) error {
	servers := ctx.State.Topology.All()
	tasks := make([]async.Task, len(servers))
	for i, s := range servers {
		tasks[i] = async.Task{
			Name: s.Name,
			Func: func(c context.Context) error {
				return ctx.Infra.DeleteServer(c, s.Name)
			},
		}
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		return fmt.Errorf("failed to delete servers: %w", err)
	}
	return nil
}

func (p *Provisioner) removeBackup(ctx *provisioning.Context) error {
	if ctx.Backup == nil {
		return nil
	}
	if err := ctx.Backup.Remove(ctx, ctx.Spec.ClusterName); err != nil {
		return fmt.Errorf("failed to remove kubeconfig backup: %w", err)
	}
	return nil
}
