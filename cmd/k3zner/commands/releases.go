package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k3zner/cmd/k3zner/handlers"
)

// Releases returns the command listing available k3s releases.
func Releases() *cobra.Command {
	return &cobra.Command{
		Use:   "releases",
		Short: "List available k3s releases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Releases(cmd.Context())
		},
	}
}
