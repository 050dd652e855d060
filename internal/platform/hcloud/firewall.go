package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureFirewall ensures that a firewall exists. Rules of an existing
// firewall are left as they are.
func (c *RealClient) EnsureFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string) (*hcloud.Firewall, error) {
	return (&EnsureOperation[*hcloud.Firewall, hcloud.FirewallCreateOpts]{
		Name:         name,
		ResourceType: "firewall",
		Get:          c.client.Firewall.Get,
		Create:       c.createFirewall,
		CreateOptsMapper: func() (hcloud.FirewallCreateOpts, error) {
			return hcloud.FirewallCreateOpts{
				Name:   name,
				Rules:  rules,
				Labels: labels,
			}, nil
		},
	}).Execute(ctx, c)
}

func (c *RealClient) createFirewall(ctx context.Context, opts hcloud.FirewallCreateOpts) (*CreateResult[*hcloud.Firewall], *hcloud.Response, error) {
	res, resp, err := c.client.Firewall.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.Firewall]{
		Resource: res.Firewall,
		Actions:  res.Actions,
	}, resp, nil
}

// RemoveFirewallFromServers detaches the firewall from the given servers.
func (c *RealClient) RemoveFirewallFromServers(ctx context.Context, name string, serverIDs []int64) error {
	fw, _, err := c.client.Firewall.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get firewall: %w", err)
	}
	if fw == nil {
		return nil
	}

	resources := appliedServers(fw, serverIDs)
	if len(resources) == 0 {
		return nil
	}

	actions, _, err := c.client.Firewall.RemoveResources(ctx, fw, resources)
	if err != nil {
		return fmt.Errorf("failed to remove firewall %s from servers: %w", name, err)
	}
	if err := waitForActions(ctx, c.client, actions...); err != nil {
		return fmt.Errorf("failed to wait for firewall %s removal: %w", name, err)
	}
	return nil
}

// appliedServers returns the firewall resources for the given servers the
// firewall is currently applied to.
func appliedServers(fw *hcloud.Firewall, serverIDs []int64) []hcloud.FirewallResource {
	wanted := make(map[int64]bool, len(serverIDs))
	for _, id := range serverIDs {
		wanted[id] = true
	}

	var out []hcloud.FirewallResource
	for _, res := range fw.AppliedTo {
		if res.Type == hcloud.FirewallResourceTypeServer && res.Server != nil && wanted[res.Server.ID] {
			out = append(out, hcloud.FirewallResource{
				Type:   hcloud.FirewallResourceTypeServer,
				Server: &hcloud.FirewallResourceServer{ID: res.Server.ID},
			})
		}
	}
	return out
}

// DeleteFirewall deletes the firewall with the given name.
func (c *RealClient) DeleteFirewall(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Firewall]{
		Name:         name,
		ResourceType: "firewall",
		Get:          c.client.Firewall.Get,
		Delete:       c.client.Firewall.Delete,
	}).Execute(ctx, c)
}

// GetFirewall returns the firewall with the given name, or nil.
func (c *RealClient) GetFirewall(ctx context.Context, name string) (*hcloud.Firewall, error) {
	fw, _, err := c.client.Firewall.Get(ctx, name)
	return fw, err
}
