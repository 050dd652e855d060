package hcloud

import (
	"context"
	"fmt"
)

// ServerTypeExists reports whether the provider offers the server type.
func (c *RealClient) ServerTypeExists(ctx context.Context, name string) (bool, error) {
	st, _, err := c.client.ServerType.Get(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to get server type: %w", err)
	}
	return st != nil, nil
}

// LocationExists reports whether the location exists.
func (c *RealClient) LocationExists(ctx context.Context, name string) (bool, error) {
	loc, _, err := c.client.Location.Get(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to get location: %w", err)
	}
	return loc != nil, nil
}

// NetworkExists reports whether a network with the name exists.
func (c *RealClient) NetworkExists(ctx context.Context, name string) (bool, error) {
	network, err := c.GetNetwork(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to get network: %w", err)
	}
	return network != nil, nil
}
