package hcloud

import (
	"context"
	"fmt"
	"reflect"

	"github.com/imamik/k3zner/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateResult wraps the result of a resource creation operation.
// It carries the actions that have to finish before the resource is usable.
type CreateResult[T any] struct {
	Resource T
	Action   *hcloud.Action
	Actions  []*hcloud.Action
}

// DeleteOperation encapsulates deletion logic for any hcloud resource.
//
//	func (c *RealClient) DeleteFirewall(ctx context.Context, name string) error {
//	    return (&DeleteOperation[*hcloud.Firewall]{
//	        Name:         name,
//	        ResourceType: "firewall",
//	        Get:          c.client.Firewall.Get,
//	        Delete:       c.client.Firewall.Delete,
//	    }).Execute(ctx, c)
//	}
type DeleteOperation[T any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// BeforeDelete runs once the resource is known to exist (optional)
	BeforeDelete func(ctx context.Context, resource T) error

	// Delete removes the resource
	Delete func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// Execute performs the delete operation with retry logic and timeout handling.
// The operation is idempotent: it succeeds if the resource doesn't exist.
// Calls failing with a retryable error code are repeated with exponential
// backoff.
func (op *DeleteOperation[T]) Execute(ctx context.Context, client *RealClient) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeouts.Delete)
	defer cancel()

	deleted, announced := false, false
	err := retry.WithExponentialBackoff(ctx, func() error {
		resource, _, err := op.Get(ctx, op.Name)
		if err != nil {
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", op.ResourceType, err))
		}

		if reflect.ValueOf(resource).IsNil() {
			return nil
		}
		if !announced {
			client.events.ResourceDeleting(op.ResourceType, op.Name)
			announced = true
		}

		if op.BeforeDelete != nil {
			if err := op.BeforeDelete(ctx, resource); err != nil {
				if isRetryable(err) {
					return err
				}
				return retry.Fatal(err)
			}
		}

		_, err = op.Delete(ctx, resource)
		switch {
		case err == nil:
			deleted = true
		case IsNotFound(err):
			// Removed by someone else after the lookup.
		case isRetryable(err):
			return err
		default:
			return retry.Fatal(err)
		}
		return nil
	},
		retry.WithMaxRetries(client.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(client.timeouts.RetryInitialDelay))
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", op.ResourceType, op.Name, err)
	}

	if deleted {
		client.events.ResourceDeleted(op.ResourceType, op.Name)
	} else {
		client.events.ResourceAbsent(op.ResourceType, op.Name)
	}
	return nil
}

// EnsureOperation encapsulates get-or-create logic for any hcloud resource.
// An existing resource is validated when a validator is set and otherwise
// returned unchanged.
//
//	func (c *RealClient) EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, error) {
//	    return (&EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts]{
//	        Name:         name,
//	        ResourceType: "placement group",
//	        Get:          c.client.PlacementGroup.Get,
//	        Create:       c.createPlacementGroup,
//	        CreateOptsMapper: func() (hcloud.PlacementGroupCreateOpts, error) {
//	            return hcloud.PlacementGroupCreateOpts{Name: name, Type: hcloud.PlacementGroupTypeSpread}, nil
//	        },
//	    }).Execute(ctx, c)
//	}
type EnsureOperation[T any, CreateOpts any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// Create creates the resource with the given options
	Create func(ctx context.Context, opts CreateOpts) (*CreateResult[T], *hcloud.Response, error)

	// Validate checks if existing resource matches desired state (optional)
	Validate func(resource T) error

	// CreateOptsMapper builds the create options. It runs only when the
	// resource has to be created.
	CreateOptsMapper func() (CreateOpts, error)

	// ExistingName names a found resource in events when it may differ
	// from Name (optional)
	ExistingName func(resource T) string
}

// Execute performs the ensure operation: get the existing resource or create a new one.
func (op *EnsureOperation[T, CreateOpts]) Execute(ctx context.Context, client *RealClient) (T, error) {
	var zero T

	resource, _, err := op.Get(ctx, op.Name)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s: %w", op.ResourceType, err)
	}

	if !reflect.ValueOf(resource).IsNil() {
		if op.Validate != nil {
			if err := op.Validate(resource); err != nil {
				return zero, err
			}
		}
		name := op.Name
		if op.ExistingName != nil {
			name = op.ExistingName(resource)
		}
		client.events.ResourceExists(op.ResourceType, name)
		return resource, nil
	}

	createOpts, err := op.CreateOptsMapper()
	if err != nil {
		return zero, fmt.Errorf("failed to prepare %s %s: %w", op.ResourceType, op.Name, err)
	}
	client.events.ResourceCreating(op.ResourceType, op.Name)
	result, _, err := op.Create(ctx, createOpts)
	if err != nil {
		return zero, fmt.Errorf("failed to create %s %s: %w", op.ResourceType, op.Name, err)
	}

	if err := waitForActionResult(ctx, client.client, result); err != nil {
		return zero, fmt.Errorf("failed to wait for %s creation: %w", op.ResourceType, err)
	}

	client.events.ResourceCreated(op.ResourceType, op.Name)
	return result.Resource, nil
}

// waitForActions waits for the non-nil actions to complete.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	pending := make([]*hcloud.Action, 0, len(actions))
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}

// waitForActionResult waits for actions from a CreateResult.
func waitForActionResult[T any](ctx context.Context, client *hcloud.Client, result *CreateResult[T]) error {
	return waitForActions(ctx, client, append([]*hcloud.Action{result.Action}, result.Actions...)...)
}

// simpleCreate wraps create functions returning the resource directly.
func simpleCreate[T any, Opts any](
	createFn func(context.Context, Opts) (T, *hcloud.Response, error),
) func(context.Context, Opts) (*CreateResult[T], *hcloud.Response, error) {
	return func(ctx context.Context, opts Opts) (*CreateResult[T], *hcloud.Response, error) {
		resource, resp, err := createFn(ctx, opts)
		if err != nil {
			return nil, resp, err
		}
		return &CreateResult[T]{Resource: resource}, resp, nil
	}
}
