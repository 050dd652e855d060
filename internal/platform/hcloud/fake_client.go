package hcloud

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// FakeClient is an in-memory InfrastructureManager. It keeps resources by
// name, counts create calls per kind and assigns addresses to servers and
// load balancers.
type FakeClient struct {
	mu sync.Mutex

	Events Events

	// ServerTypes and Locations restrict the catalog. Nil accepts every name.
	ServerTypes map[string]bool
	Locations   map[string]bool

	// CreateServerErr, when set, is consulted before a server is created.
	CreateServerErr func(opts ServerCreateOpts) error

	PublicIP string

	nextID          int64
	networks        map[string]*hcloud.Network
	firewalls       map[string]*hcloud.Firewall
	sshKeys         map[string]*hcloud.SSHKey
	placementGroups map[string]*hcloud.PlacementGroup
	loadBalancers   map[string]*hcloud.LoadBalancer
	servers         map[string]*hcloud.Server
	creates         map[string]int
}

// NewFakeClient returns an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Events:          NopEvents{},
		PublicIP:        "198.51.100.10",
		networks:        make(map[string]*hcloud.Network),
		firewalls:       make(map[string]*hcloud.Firewall),
		sshKeys:         make(map[string]*hcloud.SSHKey),
		placementGroups: make(map[string]*hcloud.PlacementGroup),
		loadBalancers:   make(map[string]*hcloud.LoadBalancer),
		servers:         make(map[string]*hcloud.Server),
		creates:         make(map[string]int),
	}
}

// CreateCalls returns how often a resource kind was created.
func (f *FakeClient) CreateCalls(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[kind]
}

// Counts returns how many resources of each kind currently exist.
func (f *FakeClient) Counts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]int{
		"network":         len(f.networks),
		"firewall":        len(f.firewalls),
		"ssh key":         len(f.sshKeys),
		"placement group": len(f.placementGroups),
		"load balancer":   len(f.loadBalancers),
		"server":          len(f.servers),
	}
}

// AddNetwork registers a network as if it existed before the cluster.
func (f *FakeClient) AddNetwork(name, ipRange string) *hcloud.Network {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ipNet, _ := net.ParseCIDR(ipRange)
	n := &hcloud.Network{ID: f.id(), Name: name, IPRange: ipNet}
	f.networks[name] = n
	return n
}

// AddSSHKey registers an SSH key as if it existed before the cluster.
func (f *FakeClient) AddSSHKey(name, publicKey string) *hcloud.SSHKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, _ := Fingerprint(publicKey)
	k := &hcloud.SSHKey{ID: f.id(), Name: name, PublicKey: publicKey, Fingerprint: fp}
	f.sshKeys[name] = k
	return k
}

func (f *FakeClient) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *FakeClient) created(kind, name string) {
	f.creates[kind]++
	f.Events.ResourceCreating(kind, name)
	f.Events.ResourceCreated(kind, name)
}

func (f *FakeClient) GetNetwork(_ context.Context, name string) (*hcloud.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.networks[name], nil
}

func (f *FakeClient) EnsureNetwork(_ context.Context, opts NetworkOpts) (*hcloud.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.networks[opts.Name]; ok {
		f.Events.ResourceExists("network", opts.Name)
		return n, nil
	}
	_, ipRange, err := net.ParseCIDR(opts.IPRange)
	if err != nil {
		return nil, fmt.Errorf("invalid network ip range: %w", err)
	}
	_, subnet, err := net.ParseCIDR(opts.SubnetRange)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet ip range: %w", err)
	}
	n := &hcloud.Network{
		ID:      f.id(),
		Name:    opts.Name,
		IPRange: ipRange,
		Subnets: []hcloud.NetworkSubnet{{
			Type:        hcloud.NetworkSubnetTypeCloud,
			IPRange:     subnet,
			NetworkZone: hcloud.NetworkZone(opts.Zone),
		}},
		Labels: opts.Labels,
	}
	f.networks[opts.Name] = n
	f.created("network", opts.Name)
	return n, nil
}

func (f *FakeClient) DeleteNetwork(_ context.Context, name string) error {
	return deleteFrom(f, f.networks, "network", name)
}

func (f *FakeClient) GetFirewall(_ context.Context, name string) (*hcloud.Firewall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firewalls[name], nil
}

func (f *FakeClient) EnsureFirewall(_ context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string) (*hcloud.Firewall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fw, ok := f.firewalls[name]; ok {
		f.Events.ResourceExists("firewall", name)
		return fw, nil
	}
	fw := &hcloud.Firewall{ID: f.id(), Name: name, Rules: rules, Labels: labels}
	f.firewalls[name] = fw
	f.created("firewall", name)
	return fw, nil
}

func (f *FakeClient) RemoveFirewallFromServers(_ context.Context, name string, serverIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fw, ok := f.firewalls[name]
	if !ok {
		return nil
	}
	remove := make(map[int64]bool, len(serverIDs))
	for _, id := range serverIDs {
		remove[id] = true
	}
	kept := fw.AppliedTo[:0]
	for _, res := range fw.AppliedTo {
		if res.Server == nil || !remove[res.Server.ID] {
			kept = append(kept, res)
		}
	}
	fw.AppliedTo = kept
	return nil
}

func (f *FakeClient) DeleteFirewall(_ context.Context, name string) error {
	f.mu.Lock()
	fw, ok := f.firewalls[name]
	f.mu.Unlock()
	if ok && len(fw.AppliedTo) > 0 {
		return hcloud.Error{Code: hcloud.ErrorCodeResourceInUse, Message: "firewall is still in use"}
	}
	return deleteFrom(f, f.firewalls, "firewall", name)
}

func (f *FakeClient) FindSSHKey(_ context.Context, name, publicKey string) (*hcloud.SSHKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findSSHKey(name, publicKey), nil
}

func (f *FakeClient) findSSHKey(name, publicKey string) *hcloud.SSHKey {
	if fp, err := Fingerprint(publicKey); err == nil {
		for _, k := range f.sshKeys {
			if k.Fingerprint == fp {
				return k
			}
		}
	}
	return f.sshKeys[name]
}

func (f *FakeClient) EnsureSSHKey(_ context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k := f.findSSHKey(name, publicKey); k != nil {
		f.Events.ResourceExists("ssh key", k.Name)
		return k, nil
	}
	fp, err := Fingerprint(publicKey)
	if err != nil {
		return nil, err
	}
	k := &hcloud.SSHKey{ID: f.id(), Name: name, PublicKey: publicKey, Fingerprint: fp, Labels: labels}
	f.sshKeys[name] = k
	f.created("ssh key", name)
	return k, nil
}

func (f *FakeClient) DeleteSSHKey(_ context.Context, name string) error {
	return deleteFrom(f, f.sshKeys, "ssh key", name)
}

func (f *FakeClient) GetPlacementGroup(_ context.Context, name string) (*hcloud.PlacementGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placementGroups[name], nil
}

func (f *FakeClient) EnsurePlacementGroup(_ context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pg, ok := f.placementGroups[name]; ok {
		f.Events.ResourceExists("placement group", name)
		return pg, nil
	}
	pg := &hcloud.PlacementGroup{ID: f.id(), Name: name, Type: hcloud.PlacementGroupTypeSpread, Labels: labels}
	f.placementGroups[name] = pg
	f.created("placement group", name)
	return pg, nil
}

func (f *FakeClient) DeletePlacementGroup(_ context.Context, name string) error {
	return deleteFrom(f, f.placementGroups, "placement group", name)
}

func (f *FakeClient) GetLoadBalancer(_ context.Context, name string) (*hcloud.LoadBalancer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadBalancers[name], nil
}

func (f *FakeClient) EnsureLoadBalancer(_ context.Context, opts LoadBalancerOpts) (*hcloud.LoadBalancer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lb, ok := f.loadBalancers[opts.Name]; ok {
		f.Events.ResourceExists("load balancer", opts.Name)
		return lb, nil
	}
	id := f.id()
	lb := &hcloud.LoadBalancer{
		ID:     id,
		Name:   opts.Name,
		Labels: opts.Labels,
		Targets: []hcloud.LoadBalancerTarget{{
			Type:          hcloud.LoadBalancerTargetTypeLabelSelector,
			LabelSelector: &hcloud.LoadBalancerTargetLabelSelector{Selector: opts.TargetSelector},
		}},
	}
	lb.PublicNet.Enabled = true
	lb.PublicNet.IPv4.IP = net.IPv4(192, 0, 2, byte(id%250+1))
	f.loadBalancers[opts.Name] = lb
	f.created("load balancer", opts.Name)
	return lb, nil
}

func (f *FakeClient) DeleteLoadBalancer(_ context.Context, name, _ string) error {
	return deleteFrom(f, f.loadBalancers, "load balancer", name)
}

func (f *FakeClient) GetServer(_ context.Context, name string) (*hcloud.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.servers[name], nil
}

func (f *FakeClient) EnsureServer(_ context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	if f.CreateServerErr != nil {
		if err := f.CreateServerErr(opts); err != nil {
			return nil, fmt.Errorf("failed to create server %s: %w", opts.Name, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.servers[opts.Name]; ok {
		f.Events.ResourceExists("server", opts.Name)
		return s, nil
	}

	id := f.id()
	labels := make(map[string]string, len(opts.Labels))
	for k, v := range opts.Labels {
		labels[k] = v
	}
	s := &hcloud.Server{
		ID:         id,
		Name:       opts.Name,
		Status:     hcloud.ServerStatusRunning,
		ServerType: &hcloud.ServerType{Name: opts.ServerType},
		Labels:     labels,
	}
	s.PublicNet.IPv4.IP = net.IPv4(203, 0, 113, byte(id%250+1))
	if opts.NetworkID != 0 {
		s.PrivateNet = []hcloud.ServerPrivateNet{{
			Network: &hcloud.Network{ID: opts.NetworkID},
			IP:      net.IPv4(10, 0, 0, byte(id%250+2)),
		}}
	}
	for _, fw := range f.firewalls {
		if fw.ID == opts.FirewallID {
			fw.AppliedTo = append(fw.AppliedTo, hcloud.FirewallResource{
				Type:   hcloud.FirewallResourceTypeServer,
				Server: &hcloud.FirewallResourceServer{ID: id},
			})
		}
	}
	f.servers[opts.Name] = s
	f.created("server", opts.Name)
	return s, nil
}

func (f *FakeClient) GetServersByLabel(_ context.Context, selector map[string]string) ([]*hcloud.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*hcloud.Server
	for _, s := range f.servers {
		if matches(s.Labels, selector) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matches(labels, selector map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

func (f *FakeClient) DeleteServer(_ context.Context, name string) error {
	return deleteFrom(f, f.servers, "server", name)
}

func (f *FakeClient) ServerTypeExists(_ context.Context, name string) (bool, error) {
	return f.ServerTypes == nil || f.ServerTypes[name], nil
}

func (f *FakeClient) LocationExists(_ context.Context, name string) (bool, error) {
	return f.Locations == nil || f.Locations[name], nil
}

func (f *FakeClient) NetworkExists(ctx context.Context, name string) (bool, error) {
	n, err := f.GetNetwork(ctx, name)
	return n != nil, err
}

func (f *FakeClient) GetPublicIP(context.Context) (string, error) {
	return f.PublicIP, nil
}

func deleteFrom[T any](f *FakeClient, m map[string]T, kind, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := m[name]; !ok {
		f.Events.ResourceAbsent(kind, name)
		return nil
	}
	f.Events.ResourceDeleting(kind, name)
	delete(m, name)
	f.Events.ResourceDeleted(kind, name)
	return nil
}
