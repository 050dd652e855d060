package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExponentialBackoff_SucceedsFirstTry(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("resource locked")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_StopsOnFatal(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("invalid input")

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(cause)
	}, WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_GivesUp(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("still locked")
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond), WithMaxDelay(2*time.Millisecond))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestWithExponentialBackoff_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithExponentialBackoff(ctx, func() error {
		return errors.New("locked")
	}, WithInitialDelay(time.Second))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFatal(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Fatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))

	wrapped := Fatal(errors.New("boom"))
	assert.True(t, IsFatal(wrapped))
	assert.Equal(t, "boom", wrapped.Error())
}

func TestWithExponentialBackoff_ConstantMultiplier(t *testing.T) {
	t.Parallel()
	attempts := 0

	start := time.Now()
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return errors.New("transient")
	}, WithMaxRetries(4), WithInitialDelay(25*time.Millisecond), WithMultiplier(1))

	require.Error(t, err)
	assert.Equal(t, 5, attempts)
	// Doubling would wait 25+50+100+200ms.
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}
