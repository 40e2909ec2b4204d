// Package breaker 提供了基于 gobreaker 的熔断器实现，用于保护远端核矩阵缓存与对象存储。
package breaker

import (
	"errors"
	"log/slog"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/xerrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Breaker 封装了 gobreaker 实例，集成了 Prometheus 指标监控与日志。
type Breaker struct {
	circuitBreaker *gobreaker.CircuitBreaker
}

// Settings 定义了熔断器的初始化参数。
type Settings struct {
	Name         string
	Config       config.CircuitBreakerConfig
	FailureRatio float64
	MinRequests  uint32
	// IsFailure 判定错误是否计入失败，为空时所有错误都计入。
	// 缓存未命中之类的业务结果不应触发熔断。
	IsFailure func(error) bool
}

// NewBreaker 初始化并返回一个新的熔断器封装对象。
// 未启用时返回直通实现。
func NewBreaker(st Settings, m *metrics.Metrics) *Breaker {
	if !st.Config.Enabled {
		return &Breaker{}
	}

	failureRatio := st.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}

	minRequests := st.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}

	var stateGauge *prometheus.GaugeVec
	if m != nil {
		stateGauge = m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0: Closed, 1: Half-Open, 2: Open)",
		}, []string{"name"})
	}

	gs := gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.Config.MaxRequests,
		Interval:    st.Config.Interval,
		Timeout:     st.Config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if stateGauge != nil {
				stateGauge.WithLabelValues(name).Set(float64(to))
			}
		},
	}
	if st.IsFailure != nil {
		isFailure := st.IsFailure
		gs.IsSuccessful = func(err error) bool { return err == nil || !isFailure(err) }
	}

	return &Breaker{
		circuitBreaker: gobreaker.NewCircuitBreaker(gs),
	}
}

// ExecuteTyped 执行受熔断保护的函数，熔断打开时返回 xerrors.ErrStoreUnavailable。
func ExecuteTyped[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil || b.circuitBreaker == nil {
		return fn()
	}

	res, err := b.circuitBreaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, xerrors.ErrStoreUnavailable.WithCause(err, "circuit breaker %s rejected the call", b.circuitBreaker.Name())
		}
		if res != nil {
			if v, ok := res.(T); ok {
				return v, err
			}
		}
		return zero, err
	}

	return res.(T), nil
}

// Execute 执行受熔断保护的无返回值函数。
func (b *Breaker) Execute(fn func() error) error {
	_, err := ExecuteTyped(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// State 返回当前状态，未启用时恒为 Closed。
func (b *Breaker) State() gobreaker.State {
	if b == nil || b.circuitBreaker == nil {
		return gobreaker.StateClosed
	}
	return b.circuitBreaker.State()
}
