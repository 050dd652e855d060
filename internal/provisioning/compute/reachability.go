package compute

import (
	"context"
	"fmt"

	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/async"
)

// WaitForServers blocks until every server of the topology passes the
// readiness probe, probing all of them at once.
func (p *Provisioner) WaitForServers(ctx *provisioning.Context) error {
	if ctx.SSH == nil {
		return fmt.Errorf("no remote executor configured")
	}
	servers := ctx.State.Topology.All()
	ctx.Observer.Printf("[%s] Waiting for %d servers to accept SSH sessions...", phase, len(servers))

	tasks := make([]async.Task, len(servers))
	for i, s := range servers {
		tasks[i] = async.Task{
			Name: s.Name,
			Func: func(c context.Context) error {
				if err := ctx.SSH.WaitUntilReachable(c, provisioning.Host(s)); err != nil {
					return err
				}
				ctx.Observer.Printf("[%s] Server %s is ready", phase, s.Name)
				return nil
			},
		}
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		return fmt.Errorf("servers not reachable: %w", err)
	}
	return nil
}
