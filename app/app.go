// Package app 管理服务进程的生命周期：启动服务器、监听信号并优雅关闭。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gykovacs/vessel-sub003/server"
)

const defaultShutdownTimeout = 10 * time.Second

// App 是应用程序的核心容器。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建一个新的应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 启动所有服务器并阻塞，直到 ctx 取消、收到 SIGINT/SIGTERM 或任一服务器出错。
// 随后停止服务器并按注册逆序执行清理函数。返回第一个服务器错误。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(a.opts.servers))
	for _, srv := range a.opts.servers {
		go func(s server.Server) {
			if err := s.Start(ctx); err != nil {
				a.logger.Error("server exited with error", "error", err)
				errCh <- err
				cancel()
			}
		}(srv)
	}

	<-ctx.Done()
	a.logger.Info("shutting down application", "name", a.name)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer shutdownCancel()

	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("server failed to stop", "error", err)
		}
	}

	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	select {
	case err := <-errCh:
		return err
	default:
	}
	a.logger.Info("application shut down gracefully")
	return nil
}
