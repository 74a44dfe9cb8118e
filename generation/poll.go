package generation

import (
	"context"
	"math"
	"time"

	"wardrobeapi/config"
)

// Clock lets tests drive the poll loop without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

var SystemClock Clock = systemClock{}

// PollPolicy bounds the job-queue status loop. A Multiplier of 1 keeps a
// fixed cadence. Zero MaxAttempts or Deadline disables that bound.
type PollPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
	MaxAttempts int
	Deadline    time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    1500 * time.Millisecond,
		MaxInterval: 10 * time.Second,
		Multiplier:  1.5,
		MaxAttempts: 60,
		Deadline:    5 * time.Minute,
	}
}

func PollPolicyFrom(cfg config.GenerationConfig) PollPolicy {
	p := DefaultPollPolicy()
	if cfg.PollInterval > 0 {
		p.Interval = cfg.PollInterval
	}
	if cfg.PollMaxInterval > 0 {
		p.MaxInterval = cfg.PollMaxInterval
	}
	if cfg.PollMultiplier > 0 {
		p.Multiplier = cfg.PollMultiplier
	}
	if cfg.PollMaxAttempts > 0 {
		p.MaxAttempts = cfg.PollMaxAttempts
	}
	if cfg.PollDeadline > 0 {
		p.Deadline = cfg.PollDeadline
	}
	return p
}

// Delay is the wait after the given (1-based) unfinished check:
// Interval * Multiplier^(attempt-1), capped at MaxInterval.
func (p PollPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(p.Interval) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxInterval > 0 && delay > float64(p.MaxInterval) {
		delay = float64(p.MaxInterval)
	}
	if delay < float64(p.Interval) {
		delay = float64(p.Interval)
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
