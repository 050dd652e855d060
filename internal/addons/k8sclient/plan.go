package k8sclient

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// PlanGVR identifies system-upgrade-controller Plans.
var PlanGVR = schema.GroupVersionResource{
	Group:    "upgrade.cattle.io",
	Version:  "v1",
	Resource: "plans",
}

// ApplyPlan creates the Plan, or replaces the body of the existing Plan with
// the same name.
func (c *client) ApplyPlan(ctx context.Context, plan *unstructured.Unstructured) error {
	if plan.GetNamespace() == "" || plan.GetName() == "" {
		return fmt.Errorf("plan namespace and name are required")
	}
	plans := c.dynamic.Resource(PlanGVR).Namespace(plan.GetNamespace())

	existing, err := plans.Get(ctx, plan.GetName(), metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		if _, err := plans.Create(ctx, plan, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create plan %s: %w", plan.GetName(), err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to get plan %s: %w", plan.GetName(), err)
	}

	updated := plan.DeepCopy()
	updated.SetResourceVersion(existing.GetResourceVersion())
	if _, err := plans.Update(ctx, updated, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update plan %s: %w", plan.GetName(), err)
	}
	return nil
}
