package lexapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForStatus(t *testing.T) {
	// 1. Reaches the target after leaving the wait set
	statuses := []string{StatusCreating, StatusCreating, StatusAvailable}
	polls := 0
	err := WaitForStatus(context.Background(), func(ctx context.Context) (string, error) {
		s := statuses[polls]
		polls++
		return s, nil
	}, []string{StatusCreating}, []string{StatusAvailable}, time.Millisecond, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, polls)

	// 2. Terminal status outside the target set
	err = WaitForStatus(context.Background(), func(ctx context.Context) (string, error) {
		return StatusFailed, nil
	}, []string{StatusCreating}, []string{StatusAvailable}, time.Millisecond, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), StatusFailed)

	// 3. Poll budget exhausted while still waiting
	err = WaitForStatus(context.Background(), func(ctx context.Context) (string, error) {
		return StatusCreating, nil
	}, []string{StatusCreating}, []string{StatusAvailable}, time.Millisecond, 3)
	require.Error(t, err)

	// 4. Context cancellation interrupts the wait
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WaitForStatus(ctx, func(ctx context.Context) (string, error) {
		return StatusCreating, nil
	}, []string{StatusCreating}, []string{StatusAvailable}, time.Minute, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
