package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)
	for range 3 {
		require.NoError(t, q.Check(0))
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.MaxSteps())
}

func TestQuotaEnforcer_Exceeded(t *testing.T) {
	q := NewQuotaEnforcer(2)
	require.NoError(t, q.Check(time.Second))
	require.NoError(t, q.Check(time.Second))

	err := q.Check(time.Second)
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.True(t, IsQuotaError(err))

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, time.Second, se.At)
	assert.Equal(t, 3, se.Steps)
	assert.Equal(t, 2, se.Limit)
	assert.Contains(t, err.Error(), "exceeded max steps quota")
}

func TestQuotaEnforcer_ResetsPerInstant(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check(0))
	require.NoError(t, q.Check(time.Second))
	require.NoError(t, q.Check(2*time.Second))
	assert.Error(t, q.Check(2*time.Second))
}
