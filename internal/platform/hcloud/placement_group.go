package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsurePlacementGroup ensures that a spread placement group exists.
func (c *RealClient) EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, error) {
	return (&EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts]{
		Name:         name,
		ResourceType: "placement group",
		Get:          c.client.PlacementGroup.Get,
		Create:       c.createPlacementGroup,
		CreateOptsMapper: func() (hcloud.PlacementGroupCreateOpts, error) {
			return hcloud.PlacementGroupCreateOpts{
				Name:   name,
				Type:   hcloud.PlacementGroupTypeSpread,
				Labels: labels,
			}, nil
		},
	}).Execute(ctx, c)
}

func (c *RealClient) createPlacementGroup(ctx context.Context, opts hcloud.PlacementGroupCreateOpts) (*CreateResult[*hcloud.PlacementGroup], *hcloud.Response, error) {
	res, resp, err := c.client.PlacementGroup.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.PlacementGroup]{Resource: res.PlacementGroup, Action: res.Action}, resp, nil
}

// DeletePlacementGroup deletes the placement group with the given name.
func (c *RealClient) DeletePlacementGroup(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.PlacementGroup]{
		Name:         name,
		ResourceType: "placement group",
		Get:          c.client.PlacementGroup.Get,
		Delete:       c.client.PlacementGroup.Delete,
	}).Execute(ctx, c)
}

// GetPlacementGroup returns the placement group with the given name, or nil.
func (c *RealClient) GetPlacementGroup(ctx context.Context, name string) (*hcloud.PlacementGroup, error) {
	pg, _, err := c.client.PlacementGroup.Get(ctx, name)
	return pg, err
}
