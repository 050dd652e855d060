package hcloud

import (
	"context"
	"fmt"

	"github.com/imamik/k3zner/internal/util/labels"
	"github.com/imamik/k3zner/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureServer returns the server with the given name or creates it.
// Creation waits for the create action and the follow-up actions.
func (c *RealClient) EnsureServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	return (&EnsureOperation[*hcloud.Server, hcloud.ServerCreateOpts]{
		Name:         opts.Name,
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Create:       c.createServerWithRetry,
		CreateOptsMapper: func() (hcloud.ServerCreateOpts, error) {
			return c.buildServerCreateOpts(ctx, opts)
		},
	}).Execute(ctx, c)
}

// buildServerCreateOpts resolves the server type and location and builds
// the create options.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	location, _, err := c.client.Location.Get(ctx, opts.Location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get location: %w", err)
	}
	if location == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("location not found: %s", opts.Location)
	}

	create := hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      &hcloud.Image{Name: opts.Image},
		Location:   location,
		UserData:   opts.UserData,
		Labels:     opts.Labels,
	}
	if opts.SSHKeyID != 0 {
		create.SSHKeys = []*hcloud.SSHKey{{ID: opts.SSHKeyID}}
	}
	if opts.NetworkID != 0 {
		create.Networks = []*hcloud.Network{{ID: opts.NetworkID}}
	}
	if opts.FirewallID != 0 {
		create.Firewalls = []*hcloud.ServerCreateFirewall{{Firewall: hcloud.Firewall{ID: opts.FirewallID}}}
	}
	if opts.PlacementGroupID != 0 {
		create.PlacementGroup = &hcloud.PlacementGroup{ID: opts.PlacementGroupID}
	}
	return create, nil
}

// createServerWithRetry creates a server with exponential backoff retry logic.
func (c *RealClient) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (*CreateResult[*hcloud.Server], *hcloud.Response, error) {
	var (
		result hcloud.ServerCreateResult
		resp   *hcloud.Response
	)

	err := retry.WithExponentialBackoff(ctx, func() error {
		var err error
		result, resp, err = c.client.Server.Create(ctx, opts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return nil, resp, err
	}

	if result.Server == nil {
		return nil, resp, fmt.Errorf("create response for server %s has no server object", opts.Name)
	}

	return &CreateResult[*hcloud.Server]{
		Resource: result.Server,
		Action:   result.Action,
		Actions:  result.NextActions,
	}, resp, nil
}

// GetServer returns the server with the given name, or nil.
func (c *RealClient) GetServer(ctx context.Context, name string) (*hcloud.Server, error) {
	server, _, err := c.client.Server.Get(ctx, name)
	return server, err
}

// GetServersByLabel returns all servers matching the given labels.
func (c *RealClient) GetServersByLabel(ctx context.Context, selector map[string]string) ([]*hcloud.Server, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: labels.Selector(selector)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// DeleteServer deletes the server with the given name.
func (c *RealClient) DeleteServer(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Server]{
		Name:         name,
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Delete: func(ctx context.Context, server *hcloud.Server) (*hcloud.Response, error) {
			_, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			return resp, err
		},
	}).Execute(ctx, c)
}
