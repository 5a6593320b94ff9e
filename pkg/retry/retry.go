package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned when every attempt failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Config controls exponential backoff between attempts
type Config struct {
	// Attempts is the total number of tries including the first one
	Attempts int
	// Initial is the delay before the second attempt
	Initial time.Duration
	// Max caps a single delay
	Max time.Duration
	// Multiplier grows the delay after each failed attempt
	Multiplier float64
	// Jitter is the +/- fraction applied to every delay (0-1)
	Jitter float64
}

// DefaultConfig returns 4 attempts with 500ms, 1s, 2s delays and 10% jitter
func DefaultConfig() Config {
	return Config{
		Attempts:   4,
		Initial:    500 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

func (c Config) normalized() Config {
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	if c.Initial <= 0 {
		c.Initial = 100 * time.Millisecond
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	c.Jitter = math.Max(0, math.Min(1, c.Jitter))
	return c
}

// Delay returns the wait before attempt n+1 (n starts at 1)
func (c Config) Delay(n int) time.Duration {
	c = c.normalized()
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(n-1))
	if c.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * c.Jitter * d
	}
	if d > float64(c.Max) {
		d = float64(c.Max)
	}
	return time.Duration(d)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do stops retrying and returns it unwrapped
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Notify is called after a failed attempt, before sleeping
type Notify func(attempt int, err error, next time.Duration)

// Do runs op until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. The last operation error is wrapped with ErrExhausted.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error, notify Notify) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return errors.Join(err, lastErr)
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == cfg.Attempts {
			break
		}

		wait := cfg.Delay(attempt)
		if notify != nil {
			notify(attempt, lastErr, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return errors.Join(ErrExhausted, lastErr)
}
