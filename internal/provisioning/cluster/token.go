package cluster

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/imamik/k3zner/internal/provisioning"
)

const tokenPath = "/var/lib/rancher/k3s/server/node-token"

// ResolveToken returns the join token of the leader. A leader that has not
// written one yet gets a fresh random token, which its install then adopts.
func ResolveToken(ctx *provisioning.Context, leader provisioning.LiveServer) (string, error) {
	out, err := ctx.SSH.Exec(ctx, provisioning.Host(leader), fmt.Sprintf("cat %s 2>/dev/null || true", tokenPath))
	if err != nil {
		return "", fmt.Errorf("failed to read join token from %s: %w", leader.Name, err)
	}
	if token := strings.TrimSpace(out); token != "" {
		return token, nil
	}
	return randomToken()
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate join token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
