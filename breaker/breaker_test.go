package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

var errDown = errors.New("connection refused")

func TestDisabledBreakerPassesThrough(t *testing.T) {
	b := NewBreaker(Settings{Name: "off"}, nil)
	for range 20 {
		if err := b.Execute(func() error { return errDown }); !errors.Is(err, errDown) {
			t.Fatalf("err = %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %v", b.State())
	}
}

func TestBreakerOpensAndRejects(t *testing.T) {
	b := NewBreaker(Settings{
		Name:        "store",
		Config:      config.CircuitBreakerConfig{Enabled: true, Timeout: time.Minute},
		MinRequests: 3,
	}, metrics.NewMetrics("test"))

	for range 3 {
		_ = b.Execute(func() error { return errDown })
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, xerrors.ErrStoreUnavailable) {
		t.Errorf("open breaker err = %v, want ErrStoreUnavailable", err)
	}
}

func TestIsFailureExcludesMisses(t *testing.T) {
	b := NewBreaker(Settings{
		Name:        "cache",
		Config:      config.CircuitBreakerConfig{Enabled: true, Timeout: time.Minute},
		MinRequests: 2,
		IsFailure:   func(err error) bool { return !errors.Is(err, xerrors.ErrCacheMiss) },
	}, nil)

	for range 10 {
		_ = b.Execute(func() error { return xerrors.ErrCacheMiss.With("k") })
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("cache misses tripped the breaker: %v", b.State())
	}
}

func TestExecuteTypedReturnsValue(t *testing.T) {
	b := NewBreaker(Settings{Name: "typed", Config: config.CircuitBreakerConfig{Enabled: true}}, nil)
	v, err := ExecuteTyped(b, func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(v) != "ok" {
		t.Errorf("ExecuteTyped = %q, %v", v, err)
	}
}
