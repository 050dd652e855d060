package cluster

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"k8s.io/client-go/tools/clientcmd"
)

const (
	remoteKubeconfigPath = "/etc/rancher/k3s/k3s.yaml"
	defaultEntryName     = "default"
)

// RewriteKubeconfig points the k3s-generated kubeconfig at address and
// renames its "default" cluster, user and context to clusterName.
func RewriteKubeconfig(raw []byte, clusterName, address string) ([]byte, error) {
	cfg, err := clientcmd.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	for _, cluster := range cfg.Clusters {
		u, err := url.Parse(cluster.Server)
		if err != nil {
			return nil, fmt.Errorf("invalid server %q in kubeconfig: %w", cluster.Server, err)
		}
		port := u.Port()
		if port == "" {
			port = fmt.Sprint(apiPort)
		}
		u.Host = fmt.Sprintf("%s:%s", address, port)
		cluster.Server = u.String()
	}

	if c, ok := cfg.Clusters[defaultEntryName]; ok {
		delete(cfg.Clusters, defaultEntryName)
		cfg.Clusters[clusterName] = c
	}
	if a, ok := cfg.AuthInfos[defaultEntryName]; ok {
		delete(cfg.AuthInfos, defaultEntryName)
		cfg.AuthInfos[clusterName] = a
	}
	if c, ok := cfg.Contexts[defaultEntryName]; ok {
		delete(cfg.Contexts, defaultEntryName)
		if c.Cluster == defaultEntryName {
			c.Cluster = clusterName
		}
		if c.AuthInfo == defaultEntryName {
			c.AuthInfo = clusterName
		}
		cfg.Contexts[clusterName] = c
	}
	if cfg.CurrentContext == defaultEntryName {
		cfg.CurrentContext = clusterName
	}

	out, err := clientcmd.Write(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize kubeconfig: %w", err)
	}
	return out, nil
}

// WriteKubeconfig saves the kubeconfig readable by its owner only.
func WriteKubeconfig(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create kubeconfig directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write kubeconfig: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict kubeconfig permissions: %w", err)
	}
	return nil
}
