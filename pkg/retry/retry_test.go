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

func TestRetry_Success(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		AddJitter:    false, // Disable for predictable tests
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("persistent error")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryable(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Quick(), func() error {
		attempts++
		return NonRetryable(errors.New("bad input"))
	})

	assert.True(t, IsNonRetryable(err))
	assert.Equal(t, 1, attempts)
}

func TestRetry_ZeroAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{}, func() error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_InvalidConfig(t *testing.T) {
	err := Do(context.Background(), Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}, func() error {
		return nil
	})
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialDelay: 10 * time.Millisecond, MaxDelay: 25 * time.Millisecond, Multiplier: 2.0}

	assert.Equal(t, 10*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, 20*time.Millisecond, cfg.Backoff(2))
	assert.Equal(t, 25*time.Millisecond, cfg.Backoff(3))
	assert.Equal(t, 25*time.Millisecond, cfg.Backoff(10))
}

func TestFixed(t *testing.T) {
	cfg := Fixed(20 * time.Second)
	for attempt := 1; attempt < 5; attempt++ {
		assert.Equal(t, 20*time.Second, cfg.Backoff(attempt))
	}
}

func TestForever_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	var waits []int
	err := Forever(ctx, Fixed(time.Millisecond), func(context.Context) error {
		if runs.Add(1) == 5 {
			cancel()
		}
		return errors.New("dial failed")
	}, func(attempt int, _ time.Duration, err error) {
		waits = append(waits, attempt)
		assert.Error(t, err)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(5), runs.Load())
	assert.Equal(t, []int{1, 2, 3, 4}, waits)
}

func TestForever_SuccessResetsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := Config{InitialDelay: time.Millisecond, MaxDelay: 8 * time.Millisecond, Multiplier: 2.0}
	results := []error{errors.New("a"), errors.New("b"), nil, errors.New("c")}
	var delays []time.Duration

	runs := 0
	_ = Forever(ctx, cfg, func(context.Context) error {
		err := results[runs]
		runs++
		if runs == len(results) {
			cancel()
		}
		return err
	}, func(_ int, d time.Duration, _ error) {
		delays = append(delays, d)
	})

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, time.Millisecond}, delays)
}

func TestForever_NonRetryableStops(t *testing.T) {
	stop := NonRetryable(errors.New("closed for good"))
	err := Forever(context.Background(), Fixed(time.Millisecond), func(context.Context) error {
		return stop
	}, nil)
	assert.Equal(t, stop, err)
}
