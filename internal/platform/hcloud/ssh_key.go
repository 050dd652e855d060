package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"golang.org/x/crypto/ssh"
)

// Fingerprint returns the MD5 fingerprint the provider uses to identify
// an authorized_keys formatted public key.
func Fingerprint(publicKey string) (string, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse public key: %w", err)
	}
	return ssh.FingerprintLegacyMD5(key), nil
}

// FindSSHKey looks a key up by fingerprint first, then by name.
func (c *RealClient) FindSSHKey(ctx context.Context, name, publicKey string) (*hcloud.SSHKey, error) {
	if publicKey != "" {
		fp, err := Fingerprint(publicKey)
		if err != nil {
			return nil, err
		}
		key, _, err := c.client.SSHKey.GetByFingerprint(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("failed to get ssh key by fingerprint: %w", err)
		}
		if key != nil {
			return key, nil
		}
	}

	key, _, err := c.client.SSHKey.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get ssh key: %w", err)
	}
	return key, nil
}

// EnsureSSHKey returns the registered key matching publicKey or name,
// uploading the key under name when neither exists. A key found by
// fingerprint is reported under its own name.
func (c *RealClient) EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error) {
	return (&EnsureOperation[*hcloud.SSHKey, hcloud.SSHKeyCreateOpts]{
		Name:         name,
		ResourceType: "ssh key",
		Get: func(ctx context.Context, name string) (*hcloud.SSHKey, *hcloud.Response, error) {
			key, err := c.FindSSHKey(ctx, name, publicKey)
			return key, nil, err
		},
		Create: simpleCreate(c.client.SSHKey.Create),
		ExistingName: func(key *hcloud.SSHKey) string {
			return key.Name
		},
		CreateOptsMapper: func() (hcloud.SSHKeyCreateOpts, error) {
			return hcloud.SSHKeyCreateOpts{
				Name:      name,
				PublicKey: publicKey,
				Labels:    labels,
			}, nil
		},
	}).Execute(ctx, c)
}

// DeleteSSHKey deletes the SSH key with the given name.
func (c *RealClient) DeleteSSHKey(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.SSHKey]{
		Name:         name,
		ResourceType: "ssh key",
		Get:          c.client.SSHKey.Get,
		Delete:       c.client.SSHKey.Delete,
	}).Execute(ctx, c)
}
