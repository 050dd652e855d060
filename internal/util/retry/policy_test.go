package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("connection refused")
	errDenied    = errors.New("permission denied")
)

func onlyTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func TestPolicy_Success(t *testing.T) {
	t.Parallel()

	res := Policy{MaxAttempts: 3}.Run(context.Background(), func(context.Context) error {
		return nil
	})

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.NoError(t, res.Error())
}

func TestPolicy_ExhaustsCeiling(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	var retries []int

	policy := Policy{
		MaxAttempts: 15,
		Retryable:   onlyTransient,
		OnRetry: func(attempt int, _ error) {
			retries = append(retries, attempt)
		},
	}
	res := policy.Run(context.Background(), func(context.Context) error {
		calls.Add(1)
		return errTransient
	})

	assert.Equal(t, OutcomeExhausted, res.Outcome)
	assert.Equal(t, 15, res.Attempts)
	assert.Equal(t, int32(15), calls.Load())
	assert.Len(t, retries, 14)

	err := res.Error()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
}

func TestPolicy_FatalShortCircuits(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	res := Policy{MaxAttempts: 15, Retryable: onlyTransient}.Run(context.Background(), func(context.Context) error {
		if calls.Add(1) == 2 {
			return errDenied
		}
		return errTransient
	})

	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, int32(2), calls.Load())
	assert.ErrorIs(t, res.Error(), errDenied)
	assert.NotErrorIs(t, res.Error(), ErrExhausted)
}

func TestPolicy_FatalMarkerWinsOverClassifier(t *testing.T) {
	t.Parallel()

	res := Policy{MaxAttempts: 5}.Run(context.Background(), func(context.Context) error {
		return Fatal(errTransient)
	})

	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
}

func TestPolicy_AttemptTimeoutIsRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32

	policy := Policy{
		MaxAttempts:    3,
		AttemptTimeout: 20 * time.Millisecond,
		Retryable:      func(error) bool { return false },
	}
	res := policy.Run(context.Background(), func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
}

func TestPolicy_PacesFastFailures(t *testing.T) {
	t.Parallel()

	policy := Policy{MaxAttempts: 3, AttemptTimeout: 30 * time.Millisecond}
	start := time.Now()
	res := policy.Run(context.Background(), func(context.Context) error {
		return errTransient
	})

	assert.Equal(t, OutcomeExhausted, res.Outcome)
	// two waits of roughly one attempt window each
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPolicy_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	res := Policy{MaxAttempts: 10, Delay: time.Second}.Run(ctx, func(context.Context) error {
		cancel()
		return errTransient
	})

	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.ErrorIs(t, res.Error(), context.Canceled)
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
	assert.Equal(t, "exhausted", OutcomeExhausted.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
