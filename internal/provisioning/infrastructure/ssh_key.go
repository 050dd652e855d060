package infrastructure

import (
	"fmt"
	"os"
	"strings"

	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/labels"
	"github.com/imamik/k3zner/internal/util/naming"
)

// ProvisionSSHKey registers the operator's public key. A key already
// registered under another name is reused.
func (p *Provisioner) ProvisionSSHKey(ctx *provisioning.Context) error {
	publicKey, err := ReadPublicKey(ctx.Spec.PublicSSHKeyPath)
	if err != nil {
		return err
	}

	key, err := ctx.Infra.EnsureSSHKey(ctx, naming.SSHKey(ctx.Spec.ClusterName), publicKey,
		labels.NewLabelBuilder(ctx.Spec.ClusterName).Build())
	if err != nil {
		return fmt.Errorf("failed to ensure ssh key: %w", err)
	}
	ctx.State.SSHKey = key
	return nil
}

// ReadPublicKey reads an authorized_keys style public key file.
func ReadPublicKey(path string) (string, error) {
	// #nosec G304 -- operator supplied key path
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read public ssh key: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("public ssh key %s is empty", path)
	}
	return key, nil
}
