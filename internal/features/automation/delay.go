package automation

import (
	"context"
	"time"
)

// SimulatedDelay converts an action delay in hours into a short in-process
// wait. Hour-scale delays are never honored; the wait is capped at Cap.
type SimulatedDelay struct {
	Cap   time.Duration
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewSimulatedDelay(limit time.Duration) *SimulatedDelay {
	return &SimulatedDelay{Cap: limit, Sleep: sleepContext}
}

// Duration returns the real time Wait would block for the given hours
func (d *SimulatedDelay) Duration(hours float64) time.Duration {
	if hours <= 0 {
		return 0
	}
	// compare in hours first, huge values overflow time.Duration
	if hours >= d.Cap.Hours() {
		return d.Cap
	}
	return time.Duration(hours * float64(time.Hour))
}

func (d *SimulatedDelay) Wait(ctx context.Context, hours *float64) error {
	if hours == nil {
		return nil
	}
	wait := d.Duration(*hours)
	if wait <= 0 {
		return nil
	}
	return d.Sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
