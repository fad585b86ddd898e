package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
)

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{Retries: 5, BaseDelay: 2 * time.Second, MaxDelay: 15 * time.Second}
	assert.Equal(t, 6, p.Attempts())
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 15*time.Second, p.Backoff(4))
	assert.Equal(t, 15*time.Second, p.Backoff(40))

	assert.Equal(t, time.Duration(0), Policy{}.Backoff(3))
	assert.Equal(t, 1, Policy{Retries: -1}.Attempts())
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Retryable(ctx, nil))
	assert.True(t, Retryable(ctx, errors.New("503")))
	assert.True(t, Retryable(ctx, context.DeadlineExceeded))
	assert.False(t, Retryable(ctx, fmt.Errorf("spend: %w", core.ErrBudgetExceeded)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, Retryable(cancelled, errors.New("503")))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	err := Classify(fmt.Errorf("call: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, core.ErrGenerationTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = Classify(errors.New("bad gateway"))
	assert.ErrorIs(t, err, core.ErrGenerationFailure)

	budget := fmt.Errorf("x: %w", core.ErrBudgetExceeded)
	assert.Same(t, budget, Classify(budget))
}
