package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/imamik/k3zner/internal/addons"
	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/metrics"
	"github.com/imamik/k3zner/internal/orchestration"
	"github.com/imamik/k3zner/internal/platform/hcloud"
	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/ui/tui"
)

// CreateOptions holds the flags of the create command.
type CreateOptions struct {
	ConfigPath  string
	MetricsFile string
	// Plain disables the progress view and logs instead.
	Plain bool
}

// runCreateTUI is replaced in tests.
var runCreateTUI = tui.RunCreateTUI

// Create provisions and bootstraps the cluster described by the cluster config file.
//
// On a terminal, progress is shown in a full-screen view; otherwise phases
// and resources are logged and remote output is streamed. Metrics are
// written to MetricsFile when set, also after a failure.
func Create(ctx context.Context, opts CreateOptions) (err error) {
	spec, err := loadSpec(opts.ConfigPath)
	if err != nil {
		return err
	}

	interactive := !opts.Plain && isInteractiveTTY()
	log := logger()
	var remoteOutput io.Writer = stdout
	if interactive {
		log = logr.Discard()
		remoteOutput = nil
	}

	rec := metrics.NewRecorder()
	if opts.MetricsFile != "" {
		defer func() {
			if werr := rec.WriteTextfile(opts.MetricsFile); werr != nil && err == nil {
				err = fmt.Errorf("failed to write metrics: %w", werr)
			}
		}()
	}

	observer := provisioning.NewLogrObserver(log)
	timeouts := config.LoadTimeouts()
	infra := newInfraClient(spec.HetznerToken,
		hcloud.WithTimeouts(timeouts),
		hcloud.WithMetrics(rec),
		hcloud.WithEvents(provisioning.NewResourceEvents(observer, rec)),
	)

	sshCfg := sshConfig(spec, timeouts, remoteOutput)
	sshCfg.Metrics = rec
	executor, err := newExecutor(sshCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize SSH: %w", err)
	}
	defer closeExecutor(executor)

	reconcilerOpts := []orchestration.Option{
		orchestration.WithMetrics(rec),
		orchestration.WithTimeouts(timeouts),
		orchestration.WithAddonOptions(addons.WithLogger(log.WithName("addons"))),
	}
	if spec.KubeconfigBackup != nil {
		backup, err := newBackup(ctx, spec.KubeconfigBackup)
		if err != nil {
			return fmt.Errorf("failed to initialize kubeconfig backup: %w", err)
		}
		reconcilerOpts = append(reconcilerOpts, orchestration.WithBackup(backup))
	}

	create := func(ctx context.Context, o provisioning.Observer) (*provisioning.State, error) {
		r := newReconciler(infra, executor, spec, append(reconcilerOpts, orchestration.WithObserver(o))...)
		return r.Create(ctx)
	}

	var state *provisioning.State
	if interactive {
		var names []string
		for _, p := range newReconciler(infra, executor, spec, reconcilerOpts...).CreatePhases() {
			names = append(names, p.Name())
		}
		state, err = runCreateTUI(ctx, create, observer, spec.ClusterName, spec.Location, names)
	} else {
		log.Info("Creating cluster", "cluster", spec.ClusterName, "location", spec.Location)
		state, err = create(ctx, observer)
	}
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	if !interactive {
		_, _ = fmt.Fprint(stdout, tui.RenderNodes(tui.NodeRows(state.Topology)))
	}
	_, _ = fmt.Fprintf(stdout, "\nCluster %s is ready. Kubeconfig written to %s\n", spec.ClusterName, spec.KubeconfigPath)
	return nil
}
