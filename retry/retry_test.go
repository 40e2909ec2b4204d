package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gykovacs/vessel-sub003/config"
)

var errTransient = errors.New("connection reset")

func fast(retries int) Config {
	return Config{MaxRetries: retries, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(3), nil, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(2), nil, func() error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) || calls != 3 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("malformed")
	calls := 0
	err := Do(context.Background(), fast(5), func(err error) bool { return errors.Is(err, errTransient) }, func() error {
		calls++
		return permanent
	})
	if err != permanent || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestDoZeroRetriesReturnsErrorUnwrapped(t *testing.T) {
	err := Do(context.Background(), Config{}, nil, func() error { return errTransient })
	if err != errTransient {
		t.Errorf("err = %v", err)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := fast(3)
	cfg.InitialBackoff = time.Hour
	err := Do(ctx, cfg, nil, func() error { return errTransient })
	if !errors.Is(err, errTransient) {
		t.Errorf("err = %v", err)
	}
}

func TestFromConfigDefaults(t *testing.T) {
	c := FromConfig(config.RetryConfig{MaxRetries: 2})
	if c.MaxRetries != 2 || c.InitialBackoff != Default().InitialBackoff || c.MaxBackoff != Default().MaxBackoff {
		t.Errorf("config = %+v", c)
	}
}
