package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// NetworkOpts describes a private network with a single cloud subnet.
type NetworkOpts struct {
	Name        string
	IPRange     string
	SubnetRange string
	Zone        string
	Labels      map[string]string
}

// ServerCreateOpts holds all parameters for creating a server.
type ServerCreateOpts struct {
	Name             string
	ServerType       string
	Image            string
	Location         string
	SSHKeyID         int64
	NetworkID        int64
	FirewallID       int64
	PlacementGroupID int64
	UserData         string
	Labels           map[string]string
}

// LoadBalancerOpts describes the API load balancer in front of the masters.
type LoadBalancerOpts struct {
	Name            string
	Type            string
	Location        string
	NetworkID       int64
	ListenPort      int
	DestinationPort int
	TargetSelector  string
	Labels          map[string]string
}

// NetworkManager manages private networks.
type NetworkManager interface {
	GetNetwork(ctx context.Context, name string) (*hcloud.Network, error)
	EnsureNetwork(ctx context.Context, opts NetworkOpts) (*hcloud.Network, error)
	DeleteNetwork(ctx context.Context, name string) error
}

// FirewallManager manages firewalls.
type FirewallManager interface {
	GetFirewall(ctx context.Context, name string) (*hcloud.Firewall, error)
	EnsureFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string) (*hcloud.Firewall, error)
	// RemoveFirewallFromServers detaches the firewall from the given servers.
	// Servers the firewall is not applied to are ignored.
	RemoveFirewallFromServers(ctx context.Context, name string, serverIDs []int64) error
	DeleteFirewall(ctx context.Context, name string) error
}

// SSHKeyManager manages SSH keys.
type SSHKeyManager interface {
	// FindSSHKey looks a key up by the fingerprint of publicKey first and
	// by name second. It returns nil when neither matches.
	FindSSHKey(ctx context.Context, name, publicKey string) (*hcloud.SSHKey, error)
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error)
	DeleteSSHKey(ctx context.Context, name string) error
}

// PlacementGroupManager manages spread placement groups.
type PlacementGroupManager interface {
	GetPlacementGroup(ctx context.Context, name string) (*hcloud.PlacementGroup, error)
	EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, error)
	DeletePlacementGroup(ctx context.Context, name string) error
}

// LoadBalancerManager manages load balancers.
type LoadBalancerManager interface {
	GetLoadBalancer(ctx context.Context, name string) (*hcloud.LoadBalancer, error)
	EnsureLoadBalancer(ctx context.Context, opts LoadBalancerOpts) (*hcloud.LoadBalancer, error)
	// DeleteLoadBalancer removes the label selector target before deleting
	// the load balancer.
	DeleteLoadBalancer(ctx context.Context, name, targetSelector string) error
}

// ServerProvisioner manages servers.
type ServerProvisioner interface {
	GetServer(ctx context.Context, name string) (*hcloud.Server, error)
	EnsureServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	GetServersByLabel(ctx context.Context, labels map[string]string) ([]*hcloud.Server, error)
	DeleteServer(ctx context.Context, name string) error
}

// Catalog answers lookups used by remote validation.
type Catalog interface {
	ServerTypeExists(ctx context.Context, name string) (bool, error)
	LocationExists(ctx context.Context, name string) (bool, error)
	NetworkExists(ctx context.Context, name string) (bool, error)
}

// InfrastructureManager combines all infrastructure interfaces.
type InfrastructureManager interface {
	NetworkManager
	FirewallManager
	SSHKeyManager
	PlacementGroupManager
	LoadBalancerManager
	ServerProvisioner
	Catalog
	GetPublicIP(ctx context.Context) (string, error)
}

// Events receives resource outcomes from ensure and delete operations.
// ResourceCreating and ResourceDeleting precede the mutating API call.
type Events interface {
	ResourceExists(kind, name string)
	ResourceCreating(kind, name string)
	ResourceCreated(kind, name string)
	ResourceDeleting(kind, name string)
	ResourceDeleted(kind, name string)
	ResourceAbsent(kind, name string)
}

// NopEvents discards all events.
type NopEvents struct{}

func (NopEvents) ResourceExists(string, string)   {}
func (NopEvents) ResourceCreating(string, string) {}
func (NopEvents) ResourceCreated(string, string)  {}
func (NopEvents) ResourceDeleting(string, string) {}
func (NopEvents) ResourceDeleted(string, string)  {}
func (NopEvents) ResourceAbsent(string, string)   {}

var (
	_ InfrastructureManager = (*RealClient)(nil)
	_ InfrastructureManager = (*FakeClient)(nil)
)
