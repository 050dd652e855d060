package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k3zner/cmd/k3zner/handlers"
)

// deleteHandler is replaced in tests.
var deleteHandler = handlers.Delete

// Delete returns the delete command.
func Delete() *cobra.Command {
	var opts handlers.DeleteOptions

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a k3s cluster and all its cloud resources",
		Long: `Delete removes the load balancer, firewall, network, SSH key,
placement groups and servers of the cluster. A network or SSH key that
existed before the cluster is left in place.

WARNING: This operation is irreversible. All cluster data will be lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return deleteHandler(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Delete without asking for confirmation")

	return cmd
}
