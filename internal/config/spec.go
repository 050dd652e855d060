package config

import (
	"fmt"
	"net"
	"strings"
)

// Spec is the declarative description of one cluster.
type Spec struct {
	HetznerToken      string `yaml:"hetzner_token,omitempty"`
	ClusterName       string `yaml:"cluster_name"`
	KubeconfigPath    string `yaml:"kubeconfig_path"`
	K3sVersion        string `yaml:"k3s_version"`
	PublicSSHKeyPath  string `yaml:"public_ssh_key_path"`
	PrivateSSHKeyPath string `yaml:"private_ssh_key_path,omitempty"`
	VerifyHostKey     bool   `yaml:"verify_host_key"`
	Location          string `yaml:"location"`
	Image             string `yaml:"image,omitempty"`

	PrivateNetworkSubnet string   `yaml:"private_network_subnet,omitempty"`
	ExistingNetwork      string   `yaml:"existing_network,omitempty"`
	SSHAllowedNetworks   []string `yaml:"ssh_allowed_networks"`

	ScheduleWorkloadsOnMasters bool `yaml:"schedule_workloads_on_masters"`
	EnableEncryption           bool `yaml:"enable_encryption"`

	AdditionalPackages []string `yaml:"additional_packages,omitempty"`
	PostCreateCommands []string `yaml:"post_create_commands,omitempty"`

	KubeAPIServerArgs              []string `yaml:"kube_api_server_args,omitempty"`
	KubeSchedulerArgs              []string `yaml:"kube_scheduler_args,omitempty"`
	KubeControllerManagerArgs      []string `yaml:"kube_controller_manager_args,omitempty"`
	KubeCloudControllerManagerArgs []string `yaml:"kube_cloud_controller_manager_args,omitempty"`
	KubeletArgs                    []string `yaml:"kubelet_args,omitempty"`
	KubeProxyArgs                  []string `yaml:"kube_proxy_args,omitempty"`

	Masters         MastersPool  `yaml:"masters"`
	WorkerNodePools []WorkerPool `yaml:"worker_node_pools,omitempty"`

	Addons           Addons        `yaml:"addons,omitempty"`
	KubeconfigBackup *BackupTarget `yaml:"kubeconfig_backup,omitempty"`

	path string
}

// MastersPool describes the control-plane nodes.
type MastersPool struct {
	InstanceType  string  `yaml:"instance_type"`
	InstanceCount int     `yaml:"instance_count"`
	Location      string  `yaml:"location,omitempty"`
	Labels        []Label `yaml:"labels,omitempty"`
	Taints        []Label `yaml:"taints,omitempty"`
}

// WorkerPool describes one named group of agent nodes.
type WorkerPool struct {
	Name          string  `yaml:"name"`
	InstanceType  string  `yaml:"instance_type"`
	InstanceCount int     `yaml:"instance_count"`
	Location      string  `yaml:"location,omitempty"`
	Labels        []Label `yaml:"labels,omitempty"`
	Taints        []Label `yaml:"taints,omitempty"`
}

// Label is a key/value pair. For taints the value carries the effect,
// e.g. "true:NoSchedule".
type Label struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// String renders the pair the way kubectl expects it.
func (l Label) String() string {
	return l.Key + "=" + l.Value
}

// Addons overrides the manifest URLs applied after bootstrap.
type Addons struct {
	CloudControllerManagerURL  string `yaml:"cloud_controller_manager_manifest_url,omitempty"`
	CSIDriverURL               string `yaml:"csi_driver_manifest_url,omitempty"`
	SystemUpgradeControllerURL string `yaml:"system_upgrade_controller_manifest_url,omitempty"`
}

// BackupTarget is an S3-compatible bucket that receives a copy of the kubeconfig.
type BackupTarget struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Path returns the file the cluster spec was loaded from.
func (s *Spec) Path() string {
	return s.path
}

// IsHA reports whether the control plane runs on more than one master
// and is fronted by a load balancer.
func (s *Spec) IsHA() bool {
	return s.Masters.InstanceCount > 1
}

// MastersLocation returns the location of the masters.
func (s *Spec) MastersLocation() string {
	if s.Masters.Location != "" {
		return s.Masters.Location
	}
	return s.Location
}

// PoolLocation returns the location of a worker pool.
func (s *Spec) PoolLocation(pool WorkerPool) string {
	if pool.Location != "" {
		return pool.Location
	}
	return s.Location
}

// WorkerCount returns the number of worker nodes over all pools.
func (s *Spec) WorkerCount() int {
	n := 0
	for _, pool := range s.WorkerNodePools {
		n += pool.InstanceCount
	}
	return n
}

// NetworkName returns the name of the private network the cluster uses.
func (s *Spec) NetworkName() string {
	if s.ExistingNetwork != "" {
		return s.ExistingNetwork
	}
	return s.ClusterName
}

// NetworkZone returns the network zone of the masters' location.
func (s *Spec) NetworkZone() string {
	return NetworkZone(s.MastersLocation())
}

// SubnetCIDR returns the first /24 of the private network range.
func (s *Spec) SubnetCIDR() (string, error) {
	_, ipNet, err := net.ParseCIDR(s.PrivateNetworkSubnet)
	if err != nil {
		return "", fmt.Errorf("invalid private network subnet %q: %w", s.PrivateNetworkSubnet, err)
	}
	ip := ipNet.IP.To4()
	if ip == nil {
		return "", fmt.Errorf("private network subnet %q is not IPv4", s.PrivateNetworkSubnet)
	}
	if ones, _ := ipNet.Mask.Size(); ones > 24 {
		return "", fmt.Errorf("private network subnet %q is smaller than /24", s.PrivateNetworkSubnet)
	}
	return fmt.Sprintf("%d.%d.%d.0/24", ip[0], ip[1], ip[2]), nil
}

// NetworkZone maps a location to the network zone it belongs to.
func NetworkZone(location string) string {
	switch strings.ToLower(location) {
	case "ash":
		return "us-east"
	case "hil":
		return "us-west"
	case "sin":
		return "ap-southeast"
	default:
		return "eu-central"
	}
}
