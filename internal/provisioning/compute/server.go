package compute

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/async"
	"github.com/imamik/k3zner/internal/util/labels"
)

// ProvisionServers creates every server of the cluster spec concurrently and blocks
// until all creations have finished. Servers created before a failure are
// left in place.
func (p *Provisioner) ProvisionServers(ctx *provisioning.Context) error {
	defs, err := ResolveServerDefinitions(ctx)
	if err != nil {
		return err
	}

	ctx.Observer.Printf("[%s] Creating %d servers...", phase, len(defs))

	results := async.Map(ctx, defs, func(taskCtx context.Context, def provisioning.ServerDefinition) (*hcloud.Server, error) {
		return createServer(taskCtx, ctx.Infra, ctx.Spec.ClusterName, def)
	})
	servers, err := async.Collect(results)
	if err != nil {
		return err
	}

	created := 0
	for _, s := range servers {
		if s != nil {
			created++
		}
	}
	if created != len(defs) {
		return fmt.Errorf("expected %d servers, got %d", len(defs), created)
	}
	return nil
}

// ResolveServerDefinitions expands the cluster spec into server definitions and
// fills in the IDs of the resources the infrastructure phase ensured.
func ResolveServerDefinitions(ctx *provisioning.Context) ([]provisioning.ServerDefinition, error) {
	state := ctx.State
	if state.Network == nil || state.Firewall == nil || state.SSHKey == nil {
		return nil, fmt.Errorf("infrastructure must be provisioned before servers")
	}

	defs := provisioning.BuildServerDefinitions(ctx.Spec)
	for i := range defs {
		pgName := defs[i].PlacementGroupName(ctx.Spec.ClusterName)
		pg, ok := state.PlacementGroups[pgName]
		if !ok || pg == nil {
			return nil, fmt.Errorf("placement group %s has not been provisioned", pgName)
		}
		defs[i].NetworkID = state.Network.ID
		defs[i].FirewallID = state.Firewall.ID
		defs[i].SSHKeyID = state.SSHKey.ID
		defs[i].PlacementGroupID = pg.ID
	}
	return defs, nil
}

func createServer(ctx context.Context, infra hcloud_internal.InfrastructureManager, cluster string, def provisioning.ServerDefinition) (*hcloud.Server, error) {
	userData, err := UserData(def)
	if err != nil {
		return nil, fmt.Errorf("failed to render user data for %s: %w", def.Name, err)
	}

	server, err := infra.EnsureServer(ctx, hcloud_internal.ServerCreateOpts{
		Name:             def.Name,
		ServerType:       def.InstanceType,
		Image:            def.Image,
		Location:         def.Location,
		SSHKeyID:         def.SSHKeyID,
		NetworkID:        def.NetworkID,
		FirewallID:       def.FirewallID,
		PlacementGroupID: def.PlacementGroupID,
		UserData:         userData,
		Labels:           def.CloudLabels(cluster),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", def.Name, err)
	}
	if server == nil {
		return nil, fmt.Errorf("failed to create server %s: provider returned no server", def.Name)
	}
	return server, nil
}

// LoadTopology reads the cluster's live servers into State.Topology.
func (p *Provisioner) LoadTopology(ctx *provisioning.Context) error {
	servers, err := ctx.Infra.GetServersByLabel(ctx, labels.SelectorForCluster(ctx.Spec.ClusterName))
	if err != nil {
		return fmt.Errorf("failed to list cluster servers: %w", err)
	}
	ctx.State.Topology = provisioning.NewTopology(servers)
	return nil
}
