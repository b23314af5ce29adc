package loop

import (
	"context"
	"errors"
	"time"
)

// errAborted unwinds the level recursion when a run is halted or cancelled.
var errAborted = errors.New("run aborted")

// sleep waits for d while calling tick every interval. It returns errAborted
// as soon as ctx is done or halt is closed.
func sleep(ctx context.Context, d, interval time.Duration, halt <-chan struct{}, tick func(until time.Time)) error {
	until := time.Now().Add(d)
	tick(until)
	if d <= 0 {
		return stopRequested(ctx, halt)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errAborted
		case <-halt:
			return errAborted
		case <-timer.C:
			return nil
		case <-ticker.C:
			tick(until)
		}
	}
}

func stopRequested(ctx context.Context, halt <-chan struct{}) error {
	if ctx.Err() != nil {
		return errAborted
	}
	select {
	case <-halt:
		return errAborted
	default:
		return nil
	}
}
