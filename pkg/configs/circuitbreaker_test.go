package configs

import (
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerReadyToTrip(t *testing.T) {
	c := CircuitBreakerConfig{FailureRate: 0.5, MinRequests: 10, ConsecutiveFailures: 3}
	trip := c.Settings("t").ReadyToTrip

	assert.False(t, trip(gobreaker.Counts{Requests: 2, TotalFailures: 2, ConsecutiveFailures: 2}))
	assert.True(t, trip(gobreaker.Counts{Requests: 3, TotalFailures: 3, ConsecutiveFailures: 3}))
	assert.False(t, trip(gobreaker.Counts{Requests: 10, TotalFailures: 4, ConsecutiveFailures: 1}))
	assert.True(t, trip(gobreaker.Counts{Requests: 10, TotalFailures: 5, ConsecutiveFailures: 1}))

	c.ConsecutiveFailures = 0
	assert.False(t, c.Settings("t").ReadyToTrip(gobreaker.Counts{Requests: 9, TotalFailures: 9, ConsecutiveFailures: 9}))
}
