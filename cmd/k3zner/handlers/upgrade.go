package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/orchestration"
	"github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/provisioning/upgrade"
)

// UpgradeOptions holds the flags of the upgrade command.
type UpgradeOptions struct {
	ConfigPath    string
	NewK3sVersion string
	Force         bool
	DryRun        bool
}

// Upgrade submits the system-upgrade Plans for the new k3s version and, on
// success, records the version in the cluster config file. It does not wait for the
// nodes to be upgraded.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	spec, err := loadSpec(opts.ConfigPath)
	if err != nil {
		return err
	}

	log := logger()
	timeouts := config.LoadTimeouts()
	infra := newInfraClient(spec.HetznerToken, hcloud.WithTimeouts(timeouts))

	r := newReconciler(infra, nil, spec,
		orchestration.WithObserver(provisioning.NewLogrObserver(log)),
		orchestration.WithTimeouts(timeouts),
	)
	err = r.Upgrade(ctx, upgrade.ProvisionerOptions{
		TargetVersion: opts.NewK3sVersion,
		Force:         opts.Force,
		DryRun:        opts.DryRun,
		Out:           stdout,
	})
	if err != nil {
		return fmt.Errorf("upgrade failed: %w", err)
	}

	if !opts.DryRun {
		_, _ = fmt.Fprintf(stdout, "Upgrade to %s submitted; nodes are upgraded by the system-upgrade-controller\n", opts.NewK3sVersion)
	}
	return nil
}
