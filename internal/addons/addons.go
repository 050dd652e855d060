package addons

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/k3zner/internal/addons/k8sclient"
	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/util/prerequisites"
	"github.com/imamik/k3zner/internal/util/retry"
)

// Manifest is an add-on applied by URL.
type Manifest struct {
	Name string
	URL  string
}

// Add-on names.
const (
	NameCCM                     = "hcloud-cloud-controller-manager"
	NameCSI                     = "hcloud-csi"
	NameSystemUpgradeController = "system-upgrade-controller"
)

// Manifests returns the add-ons in install order.
func Manifests(spec *config.Spec) []Manifest {
	return []Manifest{
		{Name: NameCCM, URL: spec.Addons.CloudControllerManagerURL},
		{Name: NameCSI, URL: spec.Addons.CSIDriverURL},
		{Name: NameSystemUpgradeController, URL: spec.Addons.SystemUpgradeControllerURL},
	}
}

// Installer applies the add-ons to a bootstrapped cluster.
type Installer struct {
	client         k8sclient.Client
	run            CommandRunner
	logger         logr.Logger
	checkTools     func() error
	kubectlBackoff []retry.Option
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithCommandRunner replaces the local command runner.
func WithCommandRunner(run CommandRunner) InstallerOption {
	return func(i *Installer) {
		i.run = run
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) InstallerOption {
	return func(i *Installer) {
		i.logger = logger
	}
}

// WithToolCheck replaces the kubectl presence check.
func WithToolCheck(check func() error) InstallerOption {
	return func(i *Installer) {
		i.checkTools = check
	}
}

// NewInstaller creates an Installer that talks to the cluster through client.
func NewInstaller(client k8sclient.Client, opts ...InstallerOption) *Installer {
	i := &Installer{
		client:     client,
		run:        ExecRunner,
		logger:     logr.Discard(),
		checkTools: prerequisites.Require,
		kubectlBackoff: []retry.Option{
			retry.WithMaxRetries(5),
			retry.WithInitialDelay(5 * time.Second),
			retry.WithMultiplier(1.5),
			retry.WithMaxDelay(20 * time.Second),
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install creates the hcloud secret and applies every add-on manifest in
// order. kubeconfigPath must point at the persisted cluster kubeconfig.
func (i *Installer) Install(ctx context.Context, spec *config.Spec, kubeconfigPath string) error {
	if err := i.checkTools(); err != nil {
		return err
	}

	i.logger.Info("Ensuring hcloud secret", "namespace", HCloudSecretNamespace, "name", HCloudSecretName)
	if err := i.client.EnsureSecret(ctx, HCloudSecret(spec.HetznerToken, spec.NetworkName())); err != nil {
		return fmt.Errorf("failed to ensure hcloud secret: %w", err)
	}

	for _, m := range Manifests(spec) {
		if m.URL == "" {
			continue
		}
		i.logger.Info("Applying add-on", "addon", m.Name, "url", m.URL)
		if err := applyURL(ctx, i.run, kubeconfigPath, spec.HetznerToken, m, i.kubectlBackoff...); err != nil {
			return err
		}
	}
	return nil
}
