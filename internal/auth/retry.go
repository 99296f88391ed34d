package auth

import (
	"math"
	"time"
)

// RetryPolicy is a bounded retry with a backoff between attempts.
// Sleep blocks only the calling goroutine.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the wait after the failed attempt (0-based).
	Backoff func(attempt int) time.Duration
	Sleep   func(time.Duration)
}

// ExponentialBackoff waits 2^attempt seconds: 1s, 2s, 4s, ...
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// Do calls fn until it succeeds or MaxAttempts is reached. There is no
// wait before the first attempt or after the last one. onFailure, when not
// nil, is told about every failed attempt. The last error is returned.
func (p RetryPolicy) Do(fn func() error, onFailure func(attempt int, err error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if attempt == attempts-1 {
			break
		}
		if p.Backoff != nil && p.Sleep != nil {
			p.Sleep(p.Backoff(attempt))
		}
	}
	return err
}
