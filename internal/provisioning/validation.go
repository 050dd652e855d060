package provisioning

import (
	"fmt"

	"github.com/imamik/k3zner/internal/config"
)

// ValidationPhase implements the Phase interface for pre-flight validation.
type ValidationPhase struct{}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase() *ValidationPhase {
	return &ValidationPhase{}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision checks the cluster spec statically and against the provider's catalog.
// Warnings are logged; every error is reported together.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	findings := ctx.Spec.Validate(config.ActionCreate)

	publicIP, err := ctx.Infra.GetPublicIP(ctx)
	if err != nil {
		ctx.Observer.Printf("Could not determine this machine's public IP: %v", err)
		publicIP = ""
	}
	ctx.State.PublicIP = publicIP
	findings = append(findings, ctx.Spec.ValidateRemote(ctx, ctx.Infra, publicIP)...)

	for _, w := range findings.Warnings() {
		ctx.Observer.Event(Event{
			Type:    EventValidationWarning,
			Phase:   vp.Name(),
			Message: w.Message,
			Fields:  map[string]string{"field": w.Field},
		})
	}
	if err := findings.Err(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	return nil
}
