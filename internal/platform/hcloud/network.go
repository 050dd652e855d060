package hcloud

import (
	"context"
	"fmt"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureNetwork ensures that a network with one cloud subnet exists.
// An existing network with a different IP range is an error.
func (c *RealClient) EnsureNetwork(ctx context.Context, opts NetworkOpts) (*hcloud.Network, error) {
	return (&EnsureOperation[*hcloud.Network, hcloud.NetworkCreateOpts]{
		Name:         opts.Name,
		ResourceType: "network",
		Get:          c.client.Network.Get,
		Create:       simpleCreate(c.client.Network.Create),
		Validate: func(network *hcloud.Network) error {
			if network.IPRange != nil && network.IPRange.String() != opts.IPRange {
				return fmt.Errorf("network %s exists but with different IP range %s (expected %s)",
					opts.Name, network.IPRange.String(), opts.IPRange)
			}
			return nil
		},
		CreateOptsMapper: func() (hcloud.NetworkCreateOpts, error) {
			_, ipRange, err := net.ParseCIDR(opts.IPRange)
			if err != nil {
				return hcloud.NetworkCreateOpts{}, fmt.Errorf("invalid network ip range: %w", err)
			}
			_, subnet, err := net.ParseCIDR(opts.SubnetRange)
			if err != nil {
				return hcloud.NetworkCreateOpts{}, fmt.Errorf("invalid subnet ip range: %w", err)
			}
			return hcloud.NetworkCreateOpts{
				Name:    opts.Name,
				IPRange: ipRange,
				Subnets: []hcloud.NetworkSubnet{{
					Type:        hcloud.NetworkSubnetTypeCloud,
					IPRange:     subnet,
					NetworkZone: hcloud.NetworkZone(opts.Zone),
				}},
				Labels: opts.Labels,
			}, nil
		},
	}).Execute(ctx, c)
}

// DeleteNetwork deletes the network with the given name.
func (c *RealClient) DeleteNetwork(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Network]{
		Name:         name,
		ResourceType: "network",
		Get:          c.client.Network.Get,
		Delete:       c.client.Network.Delete,
	}).Execute(ctx, c)
}

// GetNetwork returns the network with the given name, or nil.
func (c *RealClient) GetNetwork(ctx context.Context, name string) (*hcloud.Network, error) {
	network, _, err := c.client.Network.Get(ctx, name)
	return network, err
}
