// Package retry 提供带抖动的指数退避重试，用于远端核缓存的读写。
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gykovacs/vessel-sub003/config"
)

// Config 重试策略。MaxRetries 为 0 时只执行一次。
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	MaxRetries     int
}

// Default 返回通用的默认重试配置。
func Default() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// FromConfig 将配置文件中的重试参数转换为 Config，未设置的字段取默认值。
func FromConfig(c config.RetryConfig) Config {
	cfg := Default()
	cfg.MaxRetries = c.MaxRetries
	if c.InitialBackoff > 0 {
		cfg.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		cfg.MaxBackoff = c.MaxBackoff
	}
	return cfg
}

// Do 执行 fn，失败且 shouldRetry 返回 true 时按退避策略重试。
// shouldRetry 为 nil 时所有错误都重试。返回的错误包装最后一次失败。
func Do(ctx context.Context, cfg Config, shouldRetry func(error) bool, fn func() error) error {
	err := fn()
	if err == nil || cfg.MaxRetries <= 0 {
		return err
	}

	backoff := cfg.InitialBackoff
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry canceled after %d attempts: %w", attempt, err)
		case <-time.After(backoff):
		}

		if err = fn(); err == nil {
			return nil
		}
		backoff = next(backoff, cfg)
	}
	return fmt.Errorf("giving up after %d retries: %w", cfg.MaxRetries, err)
}

func next(backoff time.Duration, cfg Config) time.Duration {
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	n := float64(backoff) * mult
	if cfg.Jitter > 0 {
		n += (rand.Float64()*2 - 1) * cfg.Jitter * n
	}
	if cfg.MaxBackoff > 0 {
		return min(time.Duration(n), cfg.MaxBackoff)
	}
	return time.Duration(n)
}
