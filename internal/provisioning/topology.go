package provisioning

import (
	"fmt"
	"sort"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/k3zner/internal/config"
	"github.com/imamik/k3zner/internal/util/labels"
	"github.com/imamik/k3zner/internal/util/naming"
)

// Role is the part a server plays in the cluster.
type Role string

const (
	RoleMaster Role = labels.RoleMaster
	RoleWorker Role = labels.RoleWorker
)

// ServerDefinition is everything needed to create one server.
type ServerDefinition struct {
	Name         string
	InstanceType string
	InstanceID   string
	Role         Role
	Pool         string
	Location     string
	Image        string

	NetworkID        int64
	FirewallID       int64
	PlacementGroupID int64
	SSHKeyID         int64

	AdditionalPackages []string
	PostCreateCommands []string

	Labels []config.Label
	Taints []config.Label
}

// CloudLabels returns the labels the server is created with. The role label
// is what partitions live servers later.
func (d ServerDefinition) CloudLabels(cluster string) map[string]string {
	return labels.NewLabelBuilder(cluster).
		WithRole(string(d.Role)).
		WithPool(d.Pool).
		Build()
}

// PlacementGroupName returns the spread group the server belongs to.
func (d ServerDefinition) PlacementGroupName(cluster string) string {
	if d.Role == RoleMaster {
		return naming.MastersPlacementGroup(cluster)
	}
	return naming.PlacementGroup(cluster, d.Pool)
}

// PlacementGroupNames returns the names of every spread group of the
// cluster, masters first.
func PlacementGroupNames(spec *config.Spec) []string {
	names := []string{naming.MastersPlacementGroup(spec.ClusterName)}
	for _, pool := range spec.WorkerNodePools {
		names = append(names, naming.PlacementGroup(spec.ClusterName, pool.Name))
	}
	return names
}

// BuildServerDefinitions expands the cluster spec into one definition per server:
// masters first, then the worker pools in spec order. Resource IDs are left
// for the caller to fill in.
func BuildServerDefinitions(spec *config.Spec) []ServerDefinition {
	defs := make([]ServerDefinition, 0, spec.Masters.InstanceCount+spec.WorkerCount())

	for i := 1; i <= spec.Masters.InstanceCount; i++ {
		id := naming.MasterInstanceID(i)
		defs = append(defs, ServerDefinition{
			Name:               naming.Server(spec.ClusterName, spec.Masters.InstanceType, id),
			InstanceType:       spec.Masters.InstanceType,
			InstanceID:         id,
			Role:               RoleMaster,
			Location:           spec.MastersLocation(),
			Image:              spec.Image,
			AdditionalPackages: spec.AdditionalPackages,
			PostCreateCommands: spec.PostCreateCommands,
			Labels:             spec.Masters.Labels,
			Taints:             spec.Masters.Taints,
		})
	}

	for _, pool := range spec.WorkerNodePools {
		for i := 1; i <= pool.InstanceCount; i++ {
			id := naming.WorkerInstanceID(pool.Name, i)
			defs = append(defs, ServerDefinition{
				Name:               naming.Server(spec.ClusterName, pool.InstanceType, id),
				InstanceType:       pool.InstanceType,
				InstanceID:         id,
				Role:               RoleWorker,
				Pool:               pool.Name,
				Location:           spec.PoolLocation(pool),
				Image:              spec.Image,
				AdditionalPackages: spec.AdditionalPackages,
				PostCreateCommands: spec.PostCreateCommands,
				Labels:             pool.Labels,
				Taints:             pool.Taints,
			})
		}
	}
	return defs
}

// LiveServer is a cluster server as the provider reports it now.
type LiveServer struct {
	ID        int64
	Name      string
	Role      Role
	Pool      string
	PublicIP  string
	PrivateIP string
	Labels    map[string]string
}

// NewLiveServer converts a provider server. The role comes from the role
// label, never from the name.
func NewLiveServer(s *hcloud.Server) LiveServer {
	ls := LiveServer{
		ID:     s.ID,
		Name:   s.Name,
		Role:   Role(s.Labels[labels.KeyRole]),
		Pool:   s.Labels[labels.KeyPool],
		Labels: s.Labels,
	}
	if ip := s.PublicNet.IPv4.IP; ip != nil {
		ls.PublicIP = ip.String()
	}
	if len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		ls.PrivateIP = s.PrivateNet[0].IP.String()
	}
	return ls
}

// Topology is the live servers of a cluster split by role, each list
// sorted by name.
type Topology struct {
	Masters []LiveServer
	Workers []LiveServer
}

// NewTopology partitions servers by role. Servers without a known role are
// ignored.
func NewTopology(servers []*hcloud.Server) Topology {
	var t Topology
	for _, s := range servers {
		ls := NewLiveServer(s)
		switch ls.Role {
		case RoleMaster:
			t.Masters = append(t.Masters, ls)
		case RoleWorker:
			t.Workers = append(t.Workers, ls)
		}
	}
	sort.Slice(t.Masters, func(i, j int) bool { return t.Masters[i].Name < t.Masters[j].Name })
	sort.Slice(t.Workers, func(i, j int) bool { return t.Workers[i].Name < t.Workers[j].Name })
	return t
}

// FirstMaster returns the lexicographically first master, which leads the
// bootstrap.
func (t Topology) FirstMaster() (LiveServer, error) {
	if len(t.Masters) == 0 {
		return LiveServer{}, fmt.Errorf("cluster has no masters")
	}
	return t.Masters[0], nil
}

// All returns masters followed by workers.
func (t Topology) All() []LiveServer {
	all := make([]LiveServer, 0, len(t.Masters)+len(t.Workers))
	all = append(all, t.Masters...)
	return append(all, t.Workers...)
}

// MasterPrivateIPs returns the private addresses of all masters.
func (t Topology) MasterPrivateIPs() []string {
	ips := make([]string, 0, len(t.Masters))
	for _, m := range t.Masters {
		if m.PrivateIP != "" {
			ips = append(ips, m.PrivateIP)
		}
	}
	return ips
}
