package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped by the error of a Result whose attempts ran out.
var ErrExhausted = errors.New("retry attempts exhausted")

// Outcome tags how a policy run ended.
type Outcome int

const (
	// OutcomeSuccess means an attempt returned nil.
	OutcomeSuccess Outcome = iota
	// OutcomeFatal means an attempt failed with a non-retryable error
	// or the parent context ended.
	OutcomeFatal
	// OutcomeExhausted means every attempt failed with a retryable error.
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFatal:
		return "fatal"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Policy describes how one class of failures is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// AttemptTimeout bounds a single attempt. Zero means no per-attempt
	// deadline. An attempt that fails before its window is over waits out
	// the remainder before the next attempt starts.
	AttemptTimeout time.Duration

	// Delay is the minimum pause between attempts.
	Delay time.Duration

	// Retryable reports whether an error may be retried. A nil classifier
	// retries everything not marked with Fatal.
	Retryable func(error) bool

	// OnRetry is called before each retry with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// Result is the tagged result of Policy.Run.
type Result struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Error returns nil for a successful run. Exhausted runs wrap ErrExhausted
// and the last attempt's error.
func (r Result) Error() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeExhausted:
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.Attempts, r.Err)
	default:
		return r.Err
	}
}

// Run executes op under the policy.
func (p Policy) Run(ctx context.Context, op func(ctx context.Context) error) Result {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Outcome: OutcomeFatal, Attempts: attempt - 1, Err: err}
		}

		started := time.Now()
		err := p.attempt(ctx, op)
		if err == nil {
			return Result{Outcome: OutcomeSuccess, Attempts: attempt}
		}
		lastErr = err

		if ctx.Err() != nil {
			return Result{Outcome: OutcomeFatal, Attempts: attempt, Err: ctx.Err()}
		}
		if !p.retryable(err) {
			return Result{Outcome: OutcomeFatal, Attempts: attempt, Err: err}
		}
		if attempt == maxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.wait(time.Since(started))); err != nil {
			return Result{Outcome: OutcomeFatal, Attempts: attempt, Err: err}
		}
	}

	return Result{Outcome: OutcomeExhausted, Attempts: maxAttempts, Err: lastErr}
}

func (p Policy) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return op(attemptCtx)
}

func (p Policy) retryable(err error) bool {
	if IsFatal(err) {
		return false
	}
	// An attempt that ran into its own deadline is always worth another try.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p Policy) wait(elapsed time.Duration) time.Duration {
	wait := p.Delay
	if p.AttemptTimeout > 0 {
		if remaining := p.AttemptTimeout - elapsed; remaining > wait {
			wait = remaining
		}
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
