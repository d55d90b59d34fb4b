package automation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimulatedDelay_Duration(t *testing.T) {
	delay := NewSimulatedDelay(5 * time.Second)

	tests := []struct {
		hours float64
		want  time.Duration
	}{
		{hours: -1, want: 0},
		{hours: 0, want: 0},
		{hours: 1.0 / 1024, want: 3515625 * time.Microsecond},
		{hours: 24, want: 5 * time.Second},
		{hours: 1e10, want: 5 * time.Second},
		{hours: math.Inf(1), want: 5 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, delay.Duration(tt.hours), "hours=%v", tt.hours)
	}
}

func TestSimulatedDelay_Wait(t *testing.T) {
	sleeper := &recordingSleep{}
	delay := NewSimulatedDelay(5 * time.Second)
	delay.Sleep = sleeper.sleep

	assert.NoError(t, delay.Wait(context.Background(), nil))
	assert.NoError(t, delay.Wait(context.Background(), floatPtr(0)))
	assert.NoError(t, delay.Wait(context.Background(), floatPtr(48)))
	assert.NoError(t, delay.Wait(context.Background(), floatPtr(1e12)))

	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.waits)
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
