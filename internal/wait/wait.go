// Package wait provides bounded polling primitives used while pages settle
// and while a human completes an out-of-band login.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a condition is not met before its ceiling.
var ErrTimeout = errors.New("wait: timed out")

// Condition reports whether the awaited state has been reached.
type Condition func(ctx context.Context) (bool, error)

// TimeoutError carries the ceiling and the last condition error, if any.
type TimeoutError struct {
	Ceiling  time.Duration
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("wait: timed out after %s (%d attempts): %v", e.Ceiling, e.Attempts, e.Last)
	}
	return fmt.Sprintf("wait: timed out after %s (%d attempts)", e.Ceiling, e.Attempts)
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

// Until evaluates cond immediately and then once per interval until it
// returns true, the ceiling elapses, or ctx is done. Condition errors do not
// stop polling; the most recent one is reported with the timeout.
func Until(ctx context.Context, interval, ceiling time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	attempts := 0
	for {
		attempts++
		ok, err := cond(ctx)
		if err != nil {
			last = err
		} else if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Ceiling: ceiling, Attempts: attempts, Last: last}
		case <-ticker.C:
		}
	}
}

// Settle pauses for d so a page can finish rendering. It returns early with
// ctx.Err() if the context ends first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
