package orchestration

import (
	"github.com/imamik/k3zner/internal/addons"
	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/metrics"
	"github.com/imamik/k3zner/internal/provisioning"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithObserver sets the observer phases report to.
func WithObserver(o provisioning.Observer) Option {
	return func(r *Reconciler) { r.observer = o }
}

// WithMetrics records API, SSH and phase metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithTimeouts overrides the timeouts read from the environment.
func WithTimeouts(t *config.Timeouts) Option {
	return func(r *Reconciler) { r.timeouts = t }
}

// WithKubeClientFactory overrides how the cluster API client is built.
func WithKubeClientFactory(f provisioning.KubeClientFactory) Option {
	return func(r *Reconciler) { r.kubeClients = f }
}

// WithBackup stores the kubeconfig after bootstrap and removes it on delete.
func WithBackup(b provisioning.KubeconfigBackup) Option {
	return func(r *Reconciler) { r.backup = b }
}

// WithAddonOptions configures the add-on installer.
func WithAddonOptions(opts ...addons.InstallerOption) Option {
	return func(r *Reconciler) { r.addonOpts = append(r.addonOpts, opts...) }
}
