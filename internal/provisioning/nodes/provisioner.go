package nodes

import (
	"fmt"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/provisioning"
)

const phase = "nodes"

// Provisioner reconciles node metadata.
type Provisioner struct{}

// NewProvisioner creates a new node reconciler.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface. It waits for every
// server to register as a node, then labels and taints all masters in one
// call and each worker with the settings of its pool.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	client, err := ctx.KubeClient()
	if err != nil {
		return err
	}
	topo := ctx.State.Topology

	all := names(topo.All())
	ctx.Observer.Printf("[%s] Waiting for %d nodes to register...", phase, len(all))
	if err := client.WaitForNodes(ctx, all, ctx.Timeouts.NodeRegister); err != nil {
		return err
	}

	masters := names(topo.Masters)
	if err := client.LabelNodes(ctx, masters, ctx.Spec.Masters.Labels); err != nil {
		return fmt.Errorf("failed to label masters: %w", err)
	}
	if err := client.TaintNodes(ctx, masters, ctx.Spec.Masters.Taints); err != nil {
		return fmt.Errorf("failed to taint masters: %w", err)
	}

	pools := poolsByName(ctx.Spec)
	for _, w := range topo.Workers {
		pool, ok := pools[w.Pool]
		if !ok {
			ctx.Observer.Printf("[%s] Worker %s belongs to no configured pool, skipping", phase, w.Name)
			continue
		}
		if err := client.LabelNodes(ctx, []string{w.Name}, pool.Labels); err != nil {
			return err
		}
		if err := client.TaintNodes(ctx, []string{w.Name}, pool.Taints); err != nil {
			return err
		}
	}
	return nil
}

func names(servers []provisioning.LiveServer) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Name
	}
	return out
}

func poolsByName(spec *config.Spec) map[string]config.WorkerPool {
	pools := make(map[string]config.WorkerPool, len(spec.WorkerNodePools))
	for _, p := range spec.WorkerNodePools {
		pools[p.Name] = p
	}
	return pools
}
