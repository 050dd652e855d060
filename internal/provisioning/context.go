package provisioning

import (
	"context"
	"fmt"

	"github.com/imamik/k3zner/internal/addons/k8sclient"
	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/metrics"
	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/platform/ssh"
)

// KubeClientFactory builds a cluster API client from kubeconfig bytes.
type KubeClientFactory func(kubeconfig []byte) (k8sclient.Client, error)

// KubeconfigBackup stores a copy of the kubeconfig off-cluster.
type KubeconfigBackup interface {
	Upload(ctx context.Context, cluster string, kubeconfig []byte) error
	Remove(ctx context.Context, cluster string) error
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Spec     *config.Spec
	State    *State
	Infra    hcloud_internal.InfrastructureManager
	SSH      ssh.Executor
	Observer Observer
	Timeouts *config.Timeouts
	Metrics  *metrics.Recorder

	// NewKubeClient defaults to k8sclient.NewFromKubeconfig.
	NewKubeClient KubeClientFactory
	// Backup is nil unless kubeconfig_backup is configured.
	Backup KubeconfigBackup

	kube k8sclient.Client
}

// NewContext creates a new provisioning context.
func NewContext(ctx context.Context, spec *config.Spec, infra hcloud_internal.InfrastructureManager, executor ssh.Executor, observer Observer) *Context {
	return &Context{
		Context:       ctx,
		Spec:          spec,
		State:         NewState(),
		Infra:         infra,
		SSH:           executor,
		Observer:      observer,
		Timeouts:      config.LoadTimeouts(),
		NewKubeClient: k8sclient.NewFromKubeconfig,
	}
}

// KubeClient returns a cluster API client for State.Kubeconfig, building it
// on first use.
func (c *Context) KubeClient() (k8sclient.Client, error) {
	if c.kube != nil {
		return c.kube, nil
	}
	if len(c.State.Kubeconfig) == 0 {
		return nil, fmt.Errorf("no kubeconfig available; bootstrap has not run")
	}
	factory := c.NewKubeClient
	if factory == nil {
		factory = k8sclient.NewFromKubeconfig
	}
	client, err := factory(c.State.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	c.kube = client
	return client, nil
}

// Host returns the SSH address of a live server.
func Host(s LiveServer) ssh.Host {
	return ssh.Host{Name: s.Name, Address: s.PublicIP}
}
