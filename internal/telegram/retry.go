package telegram

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how the client retries rate-limited and transient
// failures. A 429 response waits for the server's retry_after instead of the
// exponential delay.
type RetryPolicy struct {
	MaxAttempts     int           // Total tries including the first; <= 1 disables retries
	InitialInterval time.Duration // First exponential delay
	MaxInterval     time.Duration // Cap on a single exponential delay
	MaxElapsed      time.Duration // Cap on the whole call including waits; 0 keeps the library default
}

// DefaultRetryPolicy allows five attempts within two minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsed:      2 * time.Minute,
	}
}

// NoRetry performs every call exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) options(notify backoff.Notify) []backoff.RetryOption {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
	}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}
	return opts
}
