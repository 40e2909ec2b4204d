package app

import (
	"time"

	"github.com/gykovacs/vessel-sub003/server"
)

// Option 配置应用程序选项。
type Option func(*options)

type options struct {
	servers         []server.Server
	cleanups        []func()
	shutdownTimeout time.Duration
}

// WithServer 注册由应用程序管理的服务器。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 注册关闭时执行的清理函数，例如关闭缓存连接、刷新追踪数据。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		if cleanup != nil {
			o.cleanups = append(o.cleanups, cleanup)
		}
	}
}

// WithShutdownTimeout 设置停止服务器的超时时间。
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}
