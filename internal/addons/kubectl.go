package addons

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/imamik/k3zner/internal/util/retry"
)

// CommandRunner runs a local command with extra environment variables and
// returns its combined output.
type CommandRunner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. The process is killed when ctx ends.
func ExecRunner(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- the binary is fixed and the arguments come from the cluster config file
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

// transientKubectlOutput lists output fragments of failures worth retrying;
// the API server may be briefly unavailable right after bootstrap.
var transientKubectlOutput = []string{
	"EOF",
	"connection refused",
	"Unable to connect",
	"connection reset",
	"TLS handshake timeout",
	"i/o timeout",
}

func isTransientKubectlFailure(output string) bool {
	for _, fragment := range transientKubectlOutput {
		if strings.Contains(output, fragment) {
			return true
		}
	}
	return false
}

// applyURL runs kubectl apply -f <url> with KUBECONFIG and HCLOUD_TOKEN set.
func applyURL(ctx context.Context, run CommandRunner, kubeconfigPath, token string, m Manifest, opts ...retry.Option) error {
	env := []string{
		"KUBECONFIG=" + kubeconfigPath,
		"HCLOUD_TOKEN=" + token,
	}

	return retry.WithExponentialBackoff(ctx, func() error {
		output, err := run(ctx, env, "kubectl", "apply", "-f", m.URL)
		if err == nil {
			return nil
		}
		err = fmt.Errorf("kubectl apply failed for addon %s: %w\nOutput: %s", m.Name, err, strings.TrimSpace(string(output)))
		if ctx.Err() != nil || !isTransientKubectlFailure(string(output)) {
			return retry.Fatal(err)
		}
		return err
	}, opts...)
}
