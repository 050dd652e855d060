package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/async"
)

const phase = "bootstrap"

// Provisioner installs k3s on every node of the topology.
type Provisioner struct{}

// NewProvisioner creates a new bootstrap provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if err := p.BootstrapLeader(ctx); err != nil {
		return err
	}
	if err := p.JoinFollowers(ctx); err != nil {
		return err
	}
	if err := stabilize(ctx, ctx.Timeouts.Stabilize); err != nil {
		return err
	}
	return p.BackupKubeconfig(ctx)
}

// BootstrapLeader installs the first master in cluster-init mode, then
// stores the join token and the rewritten kubeconfig in the state.
func (p *Provisioner) BootstrapLeader(ctx *provisioning.Context) error {
	leader, err := ctx.State.Topology.FirstMaster()
	if err != nil {
		return err
	}
	host := provisioning.Host(leader)

	token, err := ResolveToken(ctx, leader)
	if err != nil {
		return err
	}
	ctx.State.Token = token

	cmd, err := MasterInstallCommand(ctx.Spec, MasterInstall{
		Node:    leader,
		Token:   token,
		Leader:  true,
		TLSSANs: tlsSANs(ctx),
	})
	if err != nil {
		return err
	}
	ctx.Observer.Printf("[%s] Installing k3s on leader %s...", phase, leader.Name)
	if _, err := ctx.SSH.Exec(ctx, host, cmd); err != nil {
		return fmt.Errorf("failed to install k3s on %s: %w", leader.Name, err)
	}

	raw, err := ctx.SSH.Exec(ctx, host, "cat "+remoteKubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to fetch kubeconfig from %s: %w", leader.Name, err)
	}
	kubeconfig, err := RewriteKubeconfig([]byte(raw), ctx.Spec.ClusterName, ctx.State.ControlPlaneAddress(ctx.Spec))
	if err != nil {
		return err
	}
	if err := WriteKubeconfig(ctx.Spec.KubeconfigPath, kubeconfig); err != nil {
		return err
	}
	ctx.State.Kubeconfig = kubeconfig
	ctx.Observer.Printf("[%s] Kubeconfig written to %s", phase, ctx.Spec.KubeconfigPath)
	return nil
}

// JoinFollowers installs the remaining masters and all workers
// concurrently. It requires BootstrapLeader to have run.
func (p *Provisioner) JoinFollowers(ctx *provisioning.Context) error {
	if ctx.State.Token == "" {
		return fmt.Errorf("join token not resolved; the leader has not been bootstrapped")
	}
	topo := ctx.State.Topology
	leader, err := topo.FirstMaster()
	if err != nil {
		return err
	}

	var tasks []async.Task
	for _, m := range topo.Masters[1:] {
		cmd, err := MasterInstallCommand(ctx.Spec, MasterInstall{
			Node:        m,
			Token:       ctx.State.Token,
			JoinAddress: ctx.State.ControlPlaneAddress(ctx.Spec),
			TLSSANs:     tlsSANs(ctx),
		})
		if err != nil {
			return err
		}
		tasks = append(tasks, installTask(ctx, m, cmd))
	}
	for _, w := range topo.Workers {
		cmd, err := WorkerInstallCommand(ctx.Spec, w, ctx.State.Token, leader.PrivateIP)
		if err != nil {
			return err
		}
		tasks = append(tasks, installTask(ctx, w, cmd))
	}
	if len(tasks) == 0 {
		return nil
	}

	ctx.Observer.Printf("[%s] Joining %d nodes...", phase, len(tasks))
	if err := async.RunParallel(ctx, tasks); err != nil {
		return fmt.Errorf("failed to join nodes: %w", err)
	}
	return nil
}

func installTask(ctx *provisioning.Context, node provisioning.LiveServer, cmd string) async.Task {
	return async.Task{
		Name: node.Name,
		Func: func(c context.Context) error {
			if _, err := ctx.SSH.Exec(c, provisioning.Host(node), cmd); err != nil {
				return fmt.Errorf("failed to install k3s: %w", err)
			}
			ctx.Observer.Printf("[%s] %s joined", phase, node.Name)
			return nil
		},
	}
}

// BackupKubeconfig uploads the kubeconfig when a backup target is set.
func (p *Provisioner) BackupKubeconfig(ctx *provisioning.Context) error {
	if ctx.Backup == nil {
		return nil
	}
	if err := ctx.Backup.Upload(ctx, ctx.Spec.ClusterName, ctx.State.Kubeconfig); err != nil {
		return fmt.Errorf("failed to back up kubeconfig: %w", err)
	}
	ctx.Observer.Printf("[%s] Kubeconfig backed up", phase)
	return nil
}

// tlsSANs are the control-plane address and every master's private IP.
func tlsSANs(ctx *provisioning.Context) []string {
	var sans []string
	seen := map[string]bool{}
	for _, s := range append([]string{ctx.State.ControlPlaneAddress(ctx.Spec)}, ctx.State.Topology.MasterPrivateIPs()...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		sans = append(sans, s)
	}
	return sans
}

// stabilize gives the followers time to settle before the API is used.
func stabilize(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("interrupted while waiting for the cluster to settle: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
