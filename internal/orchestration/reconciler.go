package orchestration

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/k3zner/internal/addons"
	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/metrics"
	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/platform/ssh"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/provisioning/cluster"
	"github.com/imamik/k3zner/internal/provisioning/compute"
	"github.com/imamik/k3zner/internal/provisioning/destroy"
	"github.com/imamik/k3zner/internal/provisioning/infrastructure"
	"github.com/imamik/k3zner/internal/provisioning/nodes"
	"github.com/imamik/k3zner/internal/provisioning/upgrade"
)

// Reconciler orchestrates the cluster provisioning workflow.
type Reconciler struct {
	infra    hcloud_internal.InfrastructureManager
	executor ssh.Executor
	spec     *config.Spec

	observer    provisioning.Observer
	metrics     *metrics.Recorder
	timeouts    *config.Timeouts
	kubeClients provisioning.KubeClientFactory
	backup      provisioning.KubeconfigBackup
	addonOpts   []addons.InstallerOption
}

// NewReconciler creates a new orchestration reconciler.
func NewReconciler(infra hcloud_internal.InfrastructureManager, executor ssh.Executor, spec *config.Spec, opts ...Option) *Reconciler {
	r := &Reconciler{
		infra:    infra,
		executor: executor,
		spec:     spec,
		observer: provisioning.NewLogrObserver(logr.Discard()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) newContext(ctx context.Context) *provisioning.Context {
	pCtx := provisioning.NewContext(ctx, r.spec, r.infra, r.executor, r.observer)
	pCtx.Metrics = r.metrics
	pCtx.Backup = r.backup
	if r.timeouts != nil {
		pCtx.Timeouts = r.timeouts
	}
	if r.kubeClients != nil {
		pCtx.NewKubeClient = r.kubeClients
	}
	return pCtx
}

// CreatePhases returns the phases of cluster creation in execution order.
func (r *Reconciler) CreatePhases() []provisioning.Phase {
	return []provisioning.Phase{
		provisioning.NewValidationPhase(),
		infrastructure.NewProvisioner(),
		compute.NewProvisioner(),
		cluster.NewProvisioner(),
		nodes.NewProvisioner(),
		addons.NewPhase(r.addonOpts...),
	}
}

// Create provisions and bootstraps the cluster. The returned state holds
// the live topology and the kubeconfig, also on failure as far as the run
// got.
func (r *Reconciler) Create(ctx context.Context) (*provisioning.State, error) {
	pCtx := r.newContext(ctx)
	err := provisioning.RunPhases(pCtx, r.CreatePhases())
	return pCtx.State, err
}

// Delete tears down every resource of the cluster.
func (r *Reconciler) Delete(ctx context.Context) error {
	if err := r.spec.Validate(config.ActionDelete).Err(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	return provisioning.RunPhases(r.newContext(ctx), []provisioning.Phase{destroy.NewProvisioner()})
}

// Upgrade submits the upgrade Plans for opts.TargetVersion.
func (r *Reconciler) Upgrade(ctx context.Context, opts upgrade.ProvisionerOptions) error {
	if !opts.DryRun {
		if err := r.spec.Validate(config.ActionUpgrade).Err(); err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
	}
	return provisioning.RunPhases(r.newContext(ctx), []provisioning.Phase{upgrade.NewProvisioner(opts)})
}
