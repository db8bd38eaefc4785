// Package retry holds the bounded, fixed-delay confirmation policies used when
// waiting for a freshly written session to become observable.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrExhausted is returned when every attempt ran and the condition never held.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy is a fixed number of attempts separated by a constant delay.
// Attempts counts the first try, so Attempts=4 means one immediate check plus three retries.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Once runs the check a single time.
var Once = Policy{Attempts: 1}

func (p Policy) backoff() goretry.Backoff {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		// go-retry rejects non-positive intervals
		delay = time.Nanosecond
	}
	return goretry.WithMaxRetries(uint64(attempts-1), goretry.NewConstant(delay))
}

// Until calls check until it reports done, returns an error, or the policy is exhausted.
// The returned attempt count is how many times check ran.
func (p Policy) Until(ctx context.Context, check func(ctx context.Context) (bool, error)) (int, error) {
	attempts := 0
	err := goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if !done {
			return goretry.RetryableError(ErrExhausted)
		}
		return nil
	})
	return attempts, err
}
