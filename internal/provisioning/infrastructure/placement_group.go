package infrastructure

import (
	"fmt"

	"github.com/imamik/k3zner/internal/provisioning"
	"github.com/imamik/k3zner/internal/util/labels"
)

// ProvisionPlacementGroups ensures one spread group for the masters and one
// per worker pool.
func (p *Provisioner) ProvisionPlacementGroups(ctx *provisioning.Context) error {
	groupLabels := labels.NewLabelBuilder(ctx.Spec.ClusterName).Build()

	for _, name := range provisioning.PlacementGroupNames(ctx.Spec) {
		pg, err := ctx.Infra.EnsurePlacementGroup(ctx, name, groupLabels)
		if err != nil {
			return fmt.Errorf("failed to ensure placement group %s: %w", name, err)
		}
		ctx.State.PlacementGroups[name] = pg
	}
	return nil
}
