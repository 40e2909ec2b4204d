// Package health 提供依赖健康检查，供预测服务的 /healthz 使用。
package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

// Checker 定义健康检查函数原型。
type Checker func() error

// Result 单项检查结果。
type Result struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report 汇总全部检查结果。
type Report struct {
	Healthy bool     `json:"healthy"`
	Checks  []Result `json:"checks,omitempty"`
}

// Run 按名称顺序执行全部检查，任一失败则 Healthy 为 false。
func Run(checkers map[string]Checker) Report {
	report := Report{Healthy: true}
	for _, name := range slices.Sorted(maps.Keys(checkers)) {
		res := Result{Name: name, Status: "up"}
		if err := checkers[name](); err != nil {
			res.Status = "down"
			res.Error = err.Error()
			report.Healthy = false
		}
		report.Checks = append(report.Checks, res)
	}
	return report
}

// RedisChecker 返回 Redis 健康检查函数。
func RedisChecker(client redis.Cmdable) Checker {
	return func() error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// ModelChecker 在模型尚未加载时失败。
func ModelChecker(loaded func() bool) Checker {
	return func() error {
		if !loaded() {
			return errors.New("model not loaded")
		}
		return nil
	}
}
