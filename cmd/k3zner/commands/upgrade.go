package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k3zner/cmd/k3zner/handlers"
)

// upgradeHandler is replaced in tests.
var upgradeHandler = handlers.Upgrade

// Upgrade returns the upgrade command.
//
// Required flags:
//
//	--config, -c: Path to the cluster spec file
//	--new-k3s-version: Target k3s release
func Upgrade() *cobra.Command {
	var opts handlers.UpgradeOptions

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade k3s on every node",
		Long: `Upgrade submits system-upgrade-controller Plans that upgrade the
masters one at a time and the workers in parallel, leaving one worker
running. The new version is written back to the cluster config file.

The target version must be newer than the current one unless --force is set.
Use --dry-run to print the Plans without applying them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return upgradeHandler(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	cmd.Flags().StringVar(&opts.NewK3sVersion, "new-k3s-version", "", "Target k3s version, e.g. v1.30.2+k3s1 (required)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Allow a target version that is not newer")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the upgrade Plans without applying them")
	_ = cmd.MarkFlagRequired("new-k3s-version")

	return cmd
}
