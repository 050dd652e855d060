package handlers

import (
	"context"
	"fmt"
	"os"
)

// GitHubTokenEnvVar raises the GitHub API rate limit when set.
const GitHubTokenEnvVar = "GITHUB_TOKEN"

type releaseLister interface {
	List(ctx context.Context) ([]string, error)
}

// Releases prints the available k3s releases, newest first.
func Releases(ctx context.Context) error {
	versions, err := newReleaseLister(os.Getenv(GitHubTokenEnvVar)).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list k3s releases: %w", err)
	}
	for _, v := range versions {
		_, _ = fmt.Fprintln(stdout, v)
	}
	return nil
}
