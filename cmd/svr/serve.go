package main

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/gykovacs/vessel-sub003/app"
	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/health"
	"github.com/gykovacs/vessel-sub003/redis"
	"github.com/gykovacs/vessel-sub003/server"
	"github.com/gykovacs/vessel-sub003/tracing"
)

func runServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	var (
		cfgPath   = fs.StringP("config", "c", "configs/svr.toml", "configuration file (toml)")
		modelPath = fs.StringP("model", "m", "model.txt", "saved model to serve")
		addr      = fs.String("addr", "", "listen address, overrides server.addr")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := newEnv(*cfgPath, "serve", true)
	if err != nil {
		return err
	}
	if *addr != "" {
		e.conf.Server.Addr = *addr
	}
	if e.conf.Server.Addr == "" {
		return errors.New("server.addr is not configured")
	}
	if e.conf.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	config.RegisterReloadHook(func(c *config.Config) {
		e.logger.Info("config reloaded", "log_level", c.Log.Level)
	})

	shutdown, err := tracing.InitTracer(e.conf.Tracing)
	if err != nil {
		return err
	}

	trainer, err := e.newTrainer(nil, "")
	if err != nil {
		return err
	}
	if err := loadModel(trainer, *modelPath); err != nil {
		return err
	}

	checkers, cleanups, err := e.healthCheckers(func() bool { return trainer.Model() != nil })
	if err != nil {
		return err
	}

	metricsPath := ""
	if e.conf.Metrics.Enabled {
		metricsPath = e.conf.Metrics.Path
	}
	opts := server.RouterOptions{
		ServiceName:  serviceName(e.conf),
		Logger:       e.logger.With("component", "http"),
		MetricsPath:  metricsPath,
		RateLimit:    e.conf.RateLimit,
		MaxBodyBytes: e.conf.Server.MaxBodyBytes,
		RequestIDs:   e.ids,
		Checkers:     checkers,
	}
	if e.conf.Metrics.Enabled {
		opts.Metrics = e.metrics
	}
	router := server.NewRouter(trainer, opts)

	appOpts := []app.Option{
		app.WithServer(server.NewGinServer(router, e.conf.Server, e.logger.Logger)),
		app.WithShutdownTimeout(e.conf.Server.ShutdownTimeout),
		app.WithCleanup(func() {
			if err := shutdown(context.Background()); err != nil {
				e.logger.Error("tracer shutdown failed", "error", err)
			}
		}),
	}
	for _, c := range cleanups {
		appOpts = append(appOpts, app.WithCleanup(c))
	}
	return app.New(serviceName(e.conf), e.logger.Logger, appOpts...).Run(context.Background())
}

// healthCheckers 为模型与已配置的核缓存后端创建依赖检查。
func (e *env) healthCheckers(loaded func() bool) (map[string]health.Checker, []func(), error) {
	checkers := map[string]health.Checker{
		"model": health.ModelChecker(loaded),
	}
	var cleanups []func()
	switch e.conf.Store.Backend {
	case "redis", "multilevel":
		client, cleanup, err := redis.NewClient(&e.conf.Redis, e.metrics, e.logger)
		if err != nil {
			return nil, nil, err
		}
		checkers["redis"] = health.RedisChecker(client)
		cleanups = append(cleanups, cleanup)
	case "minio":
		checkers["minio"] = health.MinioChecker(e.conf.Minio)
	}
	return checkers, cleanups, nil
}
