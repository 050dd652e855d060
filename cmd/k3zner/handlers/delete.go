package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/orchestration"
	"github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/provisioning"
)

// ErrAborted is returned when the deletion is not confirmed.
var ErrAborted = errors.New("deletion aborted")

// DeleteOptions holds the flags of the delete command.
type DeleteOptions struct {
	ConfigPath string
	Yes        bool
}

// confirmDelete asks before a cluster is deleted; replaced in tests.
var confirmDelete = func(ctx context.Context, cluster string) (bool, error) {
	var ok bool
	err := deleteConfirmForm(cluster, &ok).RunWithContext(ctx)
	return ok, err
}

// deleteConfirmForm stores the answer in ok. Cancel is the default.
func deleteConfirmForm(cluster string, ok *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete cluster %s?", cluster)).
				Description("Servers, load balancer, firewall, network, placement groups and SSH key will be removed.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(ok),
		),
	)
}

// Delete removes every cloud resource of the cluster. Unless Yes is set,
// the deletion must be confirmed on a terminal.
func Delete(ctx context.Context, opts DeleteOptions) error {
	spec, err := loadSpec(opts.ConfigPath)
	if err != nil {
		return err
	}

	if !opts.Yes {
		if !isInteractiveTTY() {
			return fmt.Errorf("refusing to delete cluster %s without --yes in a non-interactive session", spec.ClusterName)
		}
		ok, err := confirmDelete(ctx, spec.ClusterName)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return ErrAborted
		}
	}

	log := logger()
	log.Info("Deleting cluster", "cluster", spec.ClusterName)

	observer := provisioning.NewLogrObserver(log)
	timeouts := config.LoadTimeouts()
	infra := newInfraClient(spec.HetznerToken,
		hcloud.WithTimeouts(timeouts),
		hcloud.WithEvents(provisioning.NewResourceEvents(observer, nil)),
	)

	reconcilerOpts := []orchestration.Option{
		orchestration.WithObserver(observer),
		orchestration.WithTimeouts(timeouts),
	}
	if spec.KubeconfigBackup != nil {
		backup, err := newBackup(ctx, spec.KubeconfigBackup)
		if err != nil {
			return fmt.Errorf("failed to initialize kubeconfig backup: %w", err)
		}
		reconcilerOpts = append(reconcilerOpts, orchestration.WithBackup(backup))
	}

	if err := newReconciler(infra, nil, spec, reconcilerOpts...).Delete(ctx); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "Cluster %s deleted\n", spec.ClusterName)
	return nil
}
