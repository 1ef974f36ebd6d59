package retry

import (
	"context"
	"time"
)

// Config holds retry configuration
type Config struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// DefaultConfig matches the observed tool behavior: a single attempt per
// invocation, fallbacks rather than retries doing the recovery work.
func DefaultConfig() Config {
	return Config{
		Attempts:   1,
		Delay:      time.Second,
		Multiplier: 2.0,
		MaxDelay:   10 * time.Second,
	}
}

// Do executes fn up to cfg.Attempts times with exponential backoff between
// attempts. notify, when non-nil, is called before each re-attempt with the
// attempt number just failed and its error.
func Do(ctx context.Context, cfg Config, fn func() error, notify func(attempt int, err error)) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := cfg.Delay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}
		if notify != nil {
			notify(attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
