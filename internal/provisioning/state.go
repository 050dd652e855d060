package provisioning

import (
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/k3zner/internal/config"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results. Nothing in it outlives
// the invocation.
type State struct {
	// Infrastructure results
	Network         *hcloud.Network
	Firewall        *hcloud.Firewall
	SSHKey          *hcloud.SSHKey
	PlacementGroups map[string]*hcloud.PlacementGroup // by name
	LoadBalancer    *hcloud.LoadBalancer              // HA only
	PublicIP        string                            // this machine's IPv4

	// Compute results
	Topology Topology

	// Cluster results
	Token      string
	Kubeconfig []byte
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{
		PlacementGroups: make(map[string]*hcloud.PlacementGroup),
	}
}

// ControlPlaneAddress is the address clients and joining masters use to
// reach the API server: the load balancer for HA clusters, otherwise the
// first master's public IP.
func (s *State) ControlPlaneAddress(spec *config.Spec) string {
	if spec.IsHA() && s.LoadBalancer != nil && s.LoadBalancer.PublicNet.IPv4.IP != nil {
		return s.LoadBalancer.PublicNet.IPv4.IP.String()
	}
	if first, err := s.Topology.FirstMaster(); err == nil {
		return first.PublicIP
	}
	return ""
}
