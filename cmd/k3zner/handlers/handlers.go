// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/orchestration"
	"github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/platform/s3"
	"github.com/imamik/k3zner/internal/platform/ssh"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/provisioning/upgrade"
	"github.com/imamik/k3zner/internal/releases"
)

const defaultBackupRegion = "us-east-1"

// Reconciler interface for testing - matches orchestration.Reconciler.
type Reconciler interface {
	CreatePhases() []provisioning.Phase
	Create(ctx context.Context) (*provisioning.State, error)
	Delete(ctx context.Context) error
	Upgrade(ctx context.Context, opts upgrade.ProvisionerOptions) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadSpec loads the cluster spec file.
	loadSpec = config.LoadFile

	// newInfraClient creates a new infrastructure client.
	newInfraClient = func(token string, opts ...hcloud.ClientOption) hcloud.InfrastructureManager {
		return hcloud.NewRealClient(token, opts...)
	}

	// newExecutor creates the SSH executor.
	newExecutor = func(cfg ssh.Config) (ssh.Executor, error) {
		return ssh.NewClient(cfg)
	}

	// newBackup creates the kubeconfig backup for a configured target.
	newBackup = newS3Backup

	// newReconciler creates a new cluster reconciler.
	newReconciler = func(infra hcloud.InfrastructureManager, executor ssh.Executor, spec *config.Spec, opts ...orchestration.Option) Reconciler {
		return orchestration.NewReconciler(infra, executor, spec, opts...)
	}

	// newReleaseLister creates the k3s release lister.
	newReleaseLister = func(token string) releaseLister {
		return releases.NewClient(token)
	}

	// isInteractiveTTY reports whether stdout is a terminal.
	isInteractiveTTY = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// stdout receives command output.
	stdout io.Writer = os.Stdout
)

func logger() logr.Logger {
	return logf.Log.WithName("k3zner")
}

func newS3Backup(ctx context.Context, target *config.BackupTarget) (provisioning.KubeconfigBackup, error) {
	region := target.Region
	if region == "" {
		region = defaultBackupRegion
	}
	client, err := s3.NewClient(ctx, s3.Options{
		Endpoint:  target.Endpoint,
		Region:    region,
		AccessKey: target.AccessKey,
		SecretKey: target.SecretKey,
		PathStyle: true,
	})
	if err != nil {
		return nil, err
	}
	return s3.NewKubeconfigBackup(client, target.Bucket), nil
}

// closeExecutor releases the SSH agent connection, if any.
func closeExecutor(executor ssh.Executor) {
	if c, ok := executor.(io.Closer); ok {
		_ = c.Close()
	}
}

// sshConfig builds the executor configuration from the cluster spec and timeouts.
func sshConfig(spec *config.Spec, timeouts *config.Timeouts, output io.Writer) ssh.Config {
	return ssh.Config{
		PrivateKeyPath: spec.PrivateSSHKeyPath,
		VerifyHostKey:  spec.VerifyHostKey,
		DialTimeout:    timeouts.SSHDialTimeout,
		MaxAttempts:    timeouts.SSHMaxAttempts,
		ProbeTimeout:   timeouts.SSHProbeTimeout,
		Output:         output,
		Logger:         logger().WithName("ssh"),
	}
}
