package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied to fields the cluster config file leaves empty.
const (
	DefaultImage                = "ubuntu-24.04"
	DefaultPrivateNetworkSubnet = "10.0.0.0/16"
	DefaultKubeconfigPath       = "./kubeconfig"

	DefaultCloudControllerManagerURL  = "https://github.com/hetznercloud/hcloud-cloud-controller-manager/releases/latest/download/ccm-networks.yaml"
	DefaultCSIDriverURL               = "https://raw.githubusercontent.com/hetznercloud/csi-driver/main/deploy/kubernetes/hcloud-csi.yml"
	DefaultSystemUpgradeControllerURL = "https://github.com/rancher/system-upgrade-controller/releases/latest/download/system-upgrade-controller.yaml"
)

// TokenEnvVar overrides hetzner_token when set.
const TokenEnvVar = "HCLOUD_TOKEN"

// LoadFile reads a spec file and applies defaults.
func LoadFile(path string) (*Spec, error) {
	// #nosec G304 -- the path is the operator's own spec file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	spec.path = path
	return spec, nil
}

// Parse decodes a spec document. Unknown fields are rejected.
func Parse(data []byte) (*Spec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("spec is empty")
		}
		return nil, err
	}

	spec.applyDefaults()
	return &spec, nil
}

func (s *Spec) applyDefaults() {
	if token := os.Getenv(TokenEnvVar); token != "" {
		s.HetznerToken = token
	}
	if s.Image == "" {
		s.Image = DefaultImage
	}
	if s.PrivateNetworkSubnet == "" {
		s.PrivateNetworkSubnet = DefaultPrivateNetworkSubnet
	}
	if s.KubeconfigPath == "" {
		s.KubeconfigPath = DefaultKubeconfigPath
	}
	if s.PrivateSSHKeyPath == "" && strings.HasSuffix(s.PublicSSHKeyPath, ".pub") {
		s.PrivateSSHKeyPath = strings.TrimSuffix(s.PublicSSHKeyPath, ".pub")
	}
	if s.Addons.CloudControllerManagerURL == "" {
		s.Addons.CloudControllerManagerURL = DefaultCloudControllerManagerURL
	}
	if s.Addons.CSIDriverURL == "" {
		s.Addons.CSIDriverURL = DefaultCSIDriverURL
	}
	if s.Addons.SystemUpgradeControllerURL == "" {
		s.Addons.SystemUpgradeControllerURL = DefaultSystemUpgradeControllerURL
	}

	s.KubeconfigPath = ExpandPath(s.KubeconfigPath)
	s.PublicSSHKeyPath = ExpandPath(s.PublicSSHKeyPath)
	s.PrivateSSHKeyPath = ExpandPath(s.PrivateSSHKeyPath)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
