package provisioning

import (
	"fmt"
	"time"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// Pipeline runs phases in order and stops at the first failure. Nothing is
// rolled back.
type Pipeline struct {
	Phases []Phase
}

// NewPipeline creates a pipeline of the given phases.
func NewPipeline(phases ...Phase) *Pipeline {
	return &Pipeline{Phases: phases}
}

// Run executes every phase sequentially.
func (p *Pipeline) Run(ctx *Context) error {
	start := time.Now()

	for _, phase := range p.Phases {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s phase not started: %w", phase.Name(), err)
		}

		phaseStart := time.Now()
		LogPhaseStart(ctx.Observer, phase.Name())

		err := phase.Provision(ctx)
		elapsed := time.Since(phaseStart)
		ctx.Metrics.ObservePhase(phase.Name(), err, elapsed)

		if err != nil {
			LogPhaseFailed(ctx.Observer, phase.Name(), err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}
		LogPhaseComplete(ctx.Observer, phase.Name(), elapsed)
	}

	ctx.Observer.Printf("Completed %d phases in %v", len(p.Phases), time.Since(start).Round(time.Millisecond))
	return nil
}

// RunPhases executes phases sequentially.
func RunPhases(ctx *Context, phases []Phase) error {
	return NewPipeline(phases...).Run(ctx)
}
