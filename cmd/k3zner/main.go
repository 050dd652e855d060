// Package main is the entry point for the k3zner CLI.
//
// k3zner creates, upgrades and deletes k3s clusters on Hetzner Cloud from a
// single YAML spec file, without Terraform or other IaC tools.
//
// Commands: create, delete, upgrade, releases, version.
//
// For detailed usage information, run:
//
//	k3zner --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/k3zner/cmd/k3zner/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
