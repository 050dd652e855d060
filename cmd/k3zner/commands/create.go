package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k3zner/cmd/k3zner/handlers"
)

// createHandler is replaced in tests.
var createHandler = handlers.Create

// Create returns the create command.
func Create() *cobra.Command {
	var opts handlers.CreateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a k3s cluster",
		Long: `Create provisions the network, firewall, SSH key, placement groups,
API load balancer (for HA clusters) and servers, installs k3s on the first
master and then on every other node, applies node labels and taints, and
installs the Hetzner cloud controller manager, CSI driver and
system-upgrade-controller.

Create is idempotent: running it again after a failure only adds what is
missing.

Example:
  k3zner create -c cluster.yaml

Environment variables:
  HCLOUD_TOKEN: overrides hetzner_token from the cluster config file`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return createHandler(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this node-exporter textfile")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Log progress instead of showing the progress view")

	return cmd
}
