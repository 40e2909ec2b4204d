// Package logging 提供了统一的结构化日志（slog）封装，支持日志切割与 OpenTelemetry 追踪上下文注入。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// defaultLogger 是全局默认的Logger实例，采用单例模式。
	defaultLogger *Logger
	// once 用于确保InitLogger函数只被执行一次。
	once sync.Once
	// level 是所有由本包创建的 Handler 共享的动态日志级别。
	level = new(slog.LevelVar)
)

// Config 定义日志配置
type Config struct {
	Service string
	Module  string
	Level   string
	File    string // 日志文件路径，为空则只输出到 stdout
	Console bool   // 配置了 File 时是否同时输出到 stdout
	// ConsoleLevel 非空时控制台使用固定级别，不随 SetLevel 变化；
	// 训练时可把 debug 进度日志只写入文件。
	ConsoleLevel string
	MaxSize      int  // 每个日志文件最大尺寸 (MB)
	MaxBackups   int  // 保留旧日志文件的最大个数
	MaxAge       int  // 保留旧日志文件的最大天数
	Compress     bool // 是否压缩旧日志
}

// Logger 结构体封装了原生的 `*slog.Logger`，并添加了服务名和模块名，方便在日志中区分来源。
type Logger struct {
	*slog.Logger
	Service string // 服务名称
	Module  string // 模块名称
}

// TraceHandler 是一个 `slog.Handler` 装饰器，从 `context.Context` 中提取 `trace_id` 和 `span_id` 注入日志记录。
type TraceHandler struct {
	slog.Handler
}

// Handle 在处理日志记录之前，尝试从上下文获取 SpanContext 并注入追踪属性。
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs 保持装饰器在派生 Handler 上依然生效。
func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup 保持装饰器在派生 Handler 上依然生效。
func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel 动态调整全局日志级别，配置热更新时调用。
func SetLevel(s string) {
	level.Set(parseLevel(s))
}

// NewFromConfig 创建一个新的Logger实例。
// 支持通过 Config 结构体配置日志切割。
func NewFromConfig(cfg Config) *Logger {
	level.Set(parseLevel(cfg.Level))
	return newWithWriter(cfg, nil)
}

// NewWithWriter 创建一个写入指定 io.Writer 的 Logger，主要用于测试捕获日志。
func NewWithWriter(cfg Config, w io.Writer) *Logger {
	level.Set(parseLevel(cfg.Level))
	return newWithWriter(cfg, w)
}

func newWithWriter(cfg Config, w io.Writer) *Logger {
	replaceAttr := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			a.Key = "timestamp"
		}
		return a
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr}

	var handler slog.Handler
	switch {
	case w != nil:
		handler = slog.NewJSONHandler(w, opts)
	case cfg.File != "":
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
		handler = slog.NewJSONHandler(fileWriter, opts)
		if cfg.Console {
			consoleOpts := opts
			if cfg.ConsoleLevel != "" {
				consoleOpts = &slog.HandlerOptions{Level: parseLevel(cfg.ConsoleLevel), ReplaceAttr: replaceAttr}
			}
			handler = newMultiHandler(handler, slog.NewJSONHandler(os.Stdout, consoleOpts))
		}
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{
		Logger:  logger,
		Service: cfg.Service,
		Module:  cfg.Module,
	}
}

// With 派生一个带有附加属性的 Logger，保留服务名与模块名。
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:  l.Logger.With(args...),
		Service: l.Service,
		Module:  l.Module,
	}
}

// InitLogger 初始化全局默认日志记录器，并设置为 slog 默认记录器。
func InitLogger(cfg Config) {
	once.Do(func() {
		defaultLogger = NewFromConfig(cfg)
		slog.SetDefault(defaultLogger.Logger)
	})
}

// Default 返回默认日志记录器实例
func Default() *Logger {
	if defaultLogger == nil {
		InitLogger(Config{Service: "svr", Module: "default", Level: "info"})
	}
	return defaultLogger
}

// Info 记录 Info 级别日志
func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(ctx, msg, args...)
}

// Warn 记录 Warn 级别日志
func Warn(ctx context.Context, msg string, args ...any) {
	Default().WarnContext(ctx, msg, args...)
}

// Error 记录 Error 级别日志
func Error(ctx context.Context, msg string, args ...any) {
	Default().ErrorContext(ctx, msg, args...)
}

// Debug 记录 Debug 级别日志
func Debug(ctx context.Context, msg string, args ...any) {
	Default().DebugContext(ctx, msg, args...)
}

// LogDuration 记录操作耗时
func (l *Logger) LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		l.InfoContext(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}
