package circuitbreaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/saylrun/pkg/models"
)

func TestNewBreaker_NilConfigReturnsNilBreaker(t *testing.T) {
	b, err := NewBreaker(nil)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.False(t, b.IsTripped())
	assert.False(t, b.Check(1000, 999, 0))
}

func TestNewBreaker_ParsesPercentCondition(t *testing.T) {
	cfg := &models.CircuitBreakerConfig{StopIf: "errors > 10%"}
	b, err := NewBreaker(cfg)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "errors", cfg.Metric)
	assert.Equal(t, ">", cfg.Operator)
	assert.Equal(t, 10.0, cfg.Threshold)
	assert.True(t, cfg.IsPercent)
	assert.EqualValues(t, 100, cfg.MinSamples)
}

func TestNewBreaker_InvalidConditionErrors(t *testing.T) {
	_, err := NewBreaker(&models.CircuitBreakerConfig{StopIf: "total nonsense"})
	assert.Error(t, err)
}

func TestCheck_ColdStartProtection(t *testing.T) {
	cfg := &models.CircuitBreakerConfig{StopIf: "errors > 10%", MinSamples: 50}
	b, err := NewBreaker(cfg)
	require.NoError(t, err)
	assert.False(t, b.Check(10, 10, 0))
}

func TestCheck_TripsOnceThresholdExceeded(t *testing.T) {
	cfg := &models.CircuitBreakerConfig{StopIf: "errors > 10%", MinSamples: 10}
	b, err := NewBreaker(cfg)
	require.NoError(t, err)

	assert.False(t, b.Check(100, 5, 0))
	assert.False(t, b.IsTripped())

	assert.True(t, b.Check(100, 20, 0))
	assert.True(t, b.IsTripped())
	assert.Contains(t, b.Reason(), "errors")
}

func TestCheck_AbsoluteFailureCount(t *testing.T) {
	cfg := &models.CircuitBreakerConfig{StopIf: "failures > 5", MinSamples: 1}
	b, err := NewBreaker(cfg)
	require.NoError(t, err)

	assert.False(t, b.Check(10, 3, 0))
	assert.True(t, b.Check(10, 6, 0))
}

func TestReset_ClearsTrippedState(t *testing.T) {
	cfg := &models.CircuitBreakerConfig{StopIf: "errors > 1%", MinSamples: 1}
	b, err := NewBreaker(cfg)
	require.NoError(t, err)

	assert.True(t, b.Check(10, 10, 0))
	assert.True(t, b.IsTripped())

	b.Reset()
	assert.False(t, b.IsTripped())
	assert.Empty(t, b.Reason())
}
