// Package redis 提供带指标钩子的 go-redis 客户端工厂。
package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Client 是 redis.Client 的别名，方便业务层直接使用而无需导入原生包
type Client = redis.Client

// Nil 是 key 不存在时返回的哨兵错误。
const Nil = redis.Nil

type metricsHook struct {
	addr     string
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetricsHook(addr string, m *metrics.Metrics) *metricsHook {
	return &metricsHook{
		addr: addr,
		ops: m.NewCounterVec(prometheus.CounterOpts{
			Name: "redis_ops_total",
			Help: "The total number of redis operations",
		}, []string{"addr", "command", "status"}),
		duration: m.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redis_duration_seconds",
			Help:    "The duration of redis operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"addr", "command"}),
	}
}

func (h *metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *metricsHook) observe(command string, start time.Time, err error) {
	status := "success"
	if err != nil && err != redis.Nil {
		status = "error"
	}
	h.ops.WithLabelValues(h.addr, command, status).Inc()
	h.duration.WithLabelValues(h.addr, command).Observe(time.Since(start).Seconds())
}

func (h *metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), start, err)
		return err
	}
}

func (h *metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", start, err)
		return err
	}
}

// NewClient 使用提供的配置创建一个新的 Redis 客户端并 Ping 验证连通性。
// 返回客户端、清理函数和连接失败时的错误。m 为空时不挂载指标钩子。
func NewClient(cfg *config.RedisConfig, m *metrics.Metrics, logger *logging.Logger) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if m != nil {
		client.AddHook(newMetricsHook(cfg.Addr, m))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", "addr", client.Options().Addr)

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close Redis client", "error", err)
		}
	}

	return client, cleanup, nil
}
