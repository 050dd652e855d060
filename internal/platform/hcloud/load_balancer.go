package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureLoadBalancer ensures that the API load balancer exists. It is
// created in one call with its network, TCP service and label selector
// target.
// Load balancer creation can take several minutes on the provider side.
func (c *RealClient) EnsureLoadBalancer(ctx context.Context, opts LoadBalancerOpts) (*hcloud.LoadBalancer, error) {
	return (&EnsureOperation[*hcloud.LoadBalancer, hcloud.LoadBalancerCreateOpts]{
		Name:         opts.Name,
		ResourceType: "load balancer",
		Get:          c.client.LoadBalancer.Get,
		Create:       c.createLoadBalancer,
		CreateOptsMapper: func() (hcloud.LoadBalancerCreateOpts, error) {
			return loadBalancerCreateOpts(opts), nil
		},
	}).Execute(ctx, c)
}

func loadBalancerCreateOpts(opts LoadBalancerOpts) hcloud.LoadBalancerCreateOpts {
	create := hcloud.LoadBalancerCreateOpts{
		Name:             opts.Name,
		LoadBalancerType: &hcloud.LoadBalancerType{Name: opts.Type},
		Algorithm:        &hcloud.LoadBalancerAlgorithm{Type: hcloud.LoadBalancerAlgorithmTypeRoundRobin},
		Location:         &hcloud.Location{Name: opts.Location},
		Labels:           opts.Labels,
		PublicInterface:  hcloud.Ptr(true),
		Services: []hcloud.LoadBalancerCreateOptsService{{
			Protocol:        hcloud.LoadBalancerServiceProtocolTCP,
			ListenPort:      hcloud.Ptr(opts.ListenPort),
			DestinationPort: hcloud.Ptr(opts.DestinationPort),
		}},
		Targets: []hcloud.LoadBalancerCreateOptsTarget{{
			Type:          hcloud.LoadBalancerTargetTypeLabelSelector,
			LabelSelector: hcloud.LoadBalancerCreateOptsTargetLabelSelector{Selector: opts.TargetSelector},
			UsePrivateIP:  hcloud.Ptr(opts.NetworkID != 0),
		}},
	}
	if opts.NetworkID != 0 {
		create.Network = &hcloud.Network{ID: opts.NetworkID}
	}
	return create
}

func (c *RealClient) createLoadBalancer(ctx context.Context, opts hcloud.LoadBalancerCreateOpts) (*CreateResult[*hcloud.LoadBalancer], *hcloud.Response, error) {
	res, resp, err := c.client.LoadBalancer.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.LoadBalancer]{Resource: res.LoadBalancer, Action: res.Action}, resp, nil
}

// DeleteLoadBalancer removes the label selector target and deletes the
// load balancer.
func (c *RealClient) DeleteLoadBalancer(ctx context.Context, name, targetSelector string) error {
	return (&DeleteOperation[*hcloud.LoadBalancer]{
		Name:         name,
		ResourceType: "load balancer",
		Get:          c.client.LoadBalancer.Get,
		BeforeDelete: func(ctx context.Context, lb *hcloud.LoadBalancer) error {
			if !hasLabelSelectorTarget(lb, targetSelector) {
				return nil
			}
			action, _, err := c.client.LoadBalancer.RemoveLabelSelectorTarget(ctx, lb, targetSelector)
			if err != nil {
				return fmt.Errorf("failed to remove target %q: %w", targetSelector, err)
			}
			return waitForActions(ctx, c.client, action)
		},
		Delete: c.client.LoadBalancer.Delete,
	}).Execute(ctx, c)
}

func hasLabelSelectorTarget(lb *hcloud.LoadBalancer, selector string) bool {
	for _, target := range lb.Targets {
		if target.Type == hcloud.LoadBalancerTargetTypeLabelSelector &&
			target.LabelSelector != nil && target.LabelSelector.Selector == selector {
			return true
		}
	}
	return false
}

// GetLoadBalancer returns the load balancer with the given name, or nil.
func (c *RealClient) GetLoadBalancer(ctx context.Context, name string) (*hcloud.LoadBalancer, error) {
	lb, _, err := c.client.LoadBalancer.Get(ctx, name)
	return lb, err
}
