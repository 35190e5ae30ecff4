// Package retry provides the backoff policy shared by port opening and display flushing
package retry

import (
	"context"
	"fmt"
	"time"
)

// Forever makes Config.MaxRetries unbounded
const Forever = -1

// Config defines how often and how fast a failing operation is retried
type Config struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
	MaxInterval   time.Duration `json:"max_interval" yaml:"max_interval"`
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		RetryInterval: time.Second,
		BackoffFactor: 2.0,
		MaxInterval:   time.Second * 10,
	}
}

// Validate checks if the retry configuration is valid
func (c Config) Validate() error {
	if c.MaxRetries < Forever {
		return fmt.Errorf("max retries must be >= %d, got: %d", Forever, c.MaxRetries)
	}

	if c.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}

	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}

	if c.MaxInterval < c.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}

	return nil
}

// Unlimited reports whether retries never give up
func (c Config) Unlimited() bool {
	return c.MaxRetries == Forever
}

// Backoff yields the wait before each retry
type Backoff struct {
	cfg      Config
	attempt  int
	interval time.Duration
}

// NewBackoff starts a backoff sequence for cfg
func NewBackoff(cfg Config) *Backoff {
	return &Backoff{cfg: cfg, interval: cfg.RetryInterval}
}

// Next returns the wait before the next retry and false once retries are exhausted
func (b *Backoff) Next() (time.Duration, bool) {
	if !b.cfg.Unlimited() && b.attempt >= b.cfg.MaxRetries {
		return 0, false
	}
	b.attempt++

	wait := b.interval
	b.interval = time.Duration(float64(b.interval) * b.cfg.BackoffFactor)
	if b.interval > b.cfg.MaxInterval {
		b.interval = b.cfg.MaxInterval
	}
	return wait, true
}

// Attempts returns the number of retries handed out so far
func (b *Backoff) Attempts() int {
	return b.attempt
}

// Reset restarts the sequence
func (b *Backoff) Reset() {
	b.attempt = 0
	b.interval = b.cfg.RetryInterval
}

// Do runs fn until it succeeds, retries are exhausted, ctx is done, or
// recoverable (when non-nil) rejects the error.
func Do(ctx context.Context, cfg Config, fn func() error, recoverable func(error) bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	b := NewBackoff(cfg)
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if recoverable != nil && !recoverable(err) {
			return err
		}

		wait, ok := b.Next()
		if !ok {
			return fmt.Errorf("giving up after %d attempts: %w", b.Attempts()+1, err)
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
