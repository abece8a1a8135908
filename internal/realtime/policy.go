package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy decides how long to wait between connection attempts.
type Policy interface {
	// NewBackOff returns a fresh schedule. It is Reset after every
	// successful connection; returning backoff.Stop ends retrying.
	NewBackOff() backoff.BackOff
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff { return f() }

// Fixed retries forever after a constant delay.
func Fixed(delay time.Duration) Policy {
	return PolicyFunc(func() backoff.BackOff {
		return backoff.NewConstantBackOff(delay)
	})
}

// Exponential waits base, 2·base, 4·base, ... and gives up once
// maxAttempts consecutive attempts have failed.
func Exponential(base time.Duration, maxAttempts int) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return PolicyFunc(func() backoff.BackOff {
		b := backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(base),
			backoff.WithMultiplier(2),
			backoff.WithRandomizationFactor(0),
			backoff.WithMaxInterval(base<<uint(maxAttempts)),
			backoff.WithMaxElapsedTime(0),
		)
		// The first attempt is not a retry.
		return backoff.WithMaxRetries(b, uint64(maxAttempts-1))
	})
}

// PolicyFor maps a configured policy name to a Policy. Unknown names
// fall back to Fixed.
func PolicyFor(name string, delay time.Duration, maxAttempts int) Policy {
	if name == "exponential" {
		return Exponential(delay, maxAttempts)
	}
	return Fixed(delay)
}
