// Package config 提供了统一的配置加载与管理能力（viper + validator + fsnotify 热更新）.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gykovacs/vessel-sub003/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version        string               `mapstructure:"version"        toml:"version"`
	Log            LogConfig            `mapstructure:"log"            toml:"log"`
	Trainer        TrainerConfig        `mapstructure:"trainer"        toml:"trainer"`
	Kernel         KernelConfig         `mapstructure:"kernel"         toml:"kernel"`
	Filter         FilterConfig         `mapstructure:"filter"         toml:"filter"`
	Store          StoreConfig          `mapstructure:"store"          toml:"store"`
	Redis          RedisConfig          `mapstructure:"redis"          toml:"redis"`
	BigCache       BigCacheConfig       `mapstructure:"bigcache"       toml:"bigcache"`
	Minio          MinioConfig          `mapstructure:"minio"          toml:"minio"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitbreaker" toml:"circuitbreaker"`
	Metrics        MetricsConfig        `mapstructure:"metrics"        toml:"metrics"`
	Tracing        TracingConfig        `mapstructure:"tracing"        toml:"tracing"`
	Server         ServerConfig         `mapstructure:"server"         toml:"server"`
	RateLimit      RateLimitConfig      `mapstructure:"ratelimit"      toml:"ratelimit"`
	Snowflake      SnowflakeConfig      `mapstructure:"snowflake"      toml:"snowflake"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level   string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"`
	File    string `mapstructure:"file"        toml:"file"`    // 日志文件路径。
	Console bool   `mapstructure:"console"     toml:"console"` // 同时输出到控制台。
	// ConsoleLevel 控制台的固定级别，为空时与 Level 一致。
	ConsoleLevel string `mapstructure:"console_level" toml:"console_level" validate:"omitempty,oneof=debug info warn error"`
	MaxSize      int    `mapstructure:"max_size"    toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups   int    `mapstructure:"max_backups" toml:"max_backups"` // 最大备份数。
	MaxAge       int    `mapstructure:"max_age"     toml:"max_age"`     // 最大保留天数。
	Compress     bool   `mapstructure:"compress"    toml:"compress"`
}

// TrainerConfig SMO 训练参数。严格校验在 svr.NewTrainer 中完成，这里只拦截明显错误.
type TrainerConfig struct {
	C                float64 `mapstructure:"c"                 toml:"c"                 validate:"gte=0"`
	Epsilon          float64 `mapstructure:"epsilon"           toml:"epsilon"           validate:"gte=0"`
	Tol              float64 `mapstructure:"tol"               toml:"tol"               validate:"gte=0"`
	MaxIteration     int     `mapstructure:"max_iteration"     toml:"max_iteration"     validate:"gte=0"`
	CheckInterval    int     `mapstructure:"check_interval"    toml:"check_interval"    validate:"gte=0"`
	SnapshotInterval int     `mapstructure:"snapshot_interval" toml:"snapshot_interval" validate:"gte=0"`
	GradientWorkers  int     `mapstructure:"gradient_workers"  toml:"gradient_workers"  validate:"gte=0"`
	SelectionWorkers int     `mapstructure:"selection_workers" toml:"selection_workers" validate:"gte=0"`
	KernelWorkers    int     `mapstructure:"kernel_workers"    toml:"kernel_workers"    validate:"gte=0"`
}

// KernelConfig 核函数描述，例如 "GaussianKernel 0.5".
type KernelConfig struct {
	Descriptor      string `mapstructure:"descriptor"       toml:"descriptor"`
	CrossDescriptor string `mapstructure:"cross_descriptor" toml:"cross_descriptor"` // 推理用核，为空则与训练核相同。
}

// FilterConfig 退化样本过滤规则（expr 表达式，变量 x 为特征、y 为目标）.
type FilterConfig struct {
	Expression string `mapstructure:"expression" toml:"expression"`
}

// StoreConfig 核矩阵缓存后端.
type StoreConfig struct {
	Backend string        `mapstructure:"backend" toml:"backend" validate:"omitempty,oneof=file memory bigcache redis multilevel minio"`
	Dir     string        `mapstructure:"dir"     toml:"dir"`
	TTL     time.Duration `mapstructure:"ttl"     toml:"ttl"`
	Prefix  string        `mapstructure:"prefix"  toml:"prefix"`
	Retry   RetryConfig   `mapstructure:"retry"   toml:"retry"`
}

// RetryConfig 远端缓存读写失败时的重试参数.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"     toml:"max_retries"     validate:"gte=0"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"     toml:"max_backoff"`
}

// RedisConfig 定义 Redis 连接与池化参数.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"          toml:"addr"`
	Password     string        `mapstructure:"password"      toml:"password"`
	DB           int           `mapstructure:"db"            toml:"db"`
	PoolSize     int           `mapstructure:"pool_size"     toml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" toml:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"  toml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
}

// BigCacheConfig 高性能本地内存缓存参数.
type BigCacheConfig struct {
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	CleanWindow      time.Duration `mapstructure:"clean_window"        toml:"clean_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"`
	MaxEntrySize     int           `mapstructure:"max_entry_size"      toml:"max_entry_size"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size"`
	Verbose          bool          `mapstructure:"verbose"             toml:"verbose"`
}

// MinioConfig 定义 S3 兼容对象存储 MinIO 的连接参数.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"          toml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"     toml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       toml:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"           toml:"use_ssl"`
}

// CircuitBreakerConfig 定义熔断器（gobreaker）的保护策略.
type CircuitBreakerConfig struct {
	Interval    time.Duration `mapstructure:"interval"     toml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"      toml:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests" toml:"max_requests"`
	Enabled     bool          `mapstructure:"enabled"      toml:"enabled"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// ServerConfig 推理服务的网络参数.
type ServerConfig struct {
	Name         string        `mapstructure:"name"          toml:"name"`
	Environment  string        `mapstructure:"environment"   toml:"environment"   validate:"omitempty,oneof=dev test prod"`
	Addr         string        `mapstructure:"addr"          toml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" toml:"max_body_bytes"`
	// ShutdownTimeout 优雅关闭的最长等待时间。
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
}

// RateLimitConfig 定义令牌桶限流参数.
type RateLimitConfig struct {
	Rate    int  `mapstructure:"rate"    toml:"rate"`
	Burst   int  `mapstructure:"burst"   toml:"burst"`
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// SnowflakeConfig 训练任务 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

var (
	vInstance = viper.New()
	hookMu    sync.Mutex
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hookMu.Lock()
	onReload = append(onReload, hook)
	hookMu.Unlock()
}

// Decode 读取并校验配置文件，不启动文件监听.
func Decode(path string, conf any) error {
	v := viper.New()
	return decode(v, path, conf)
}

func decode(v *viper.Viper, path string, conf any) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Load 加载配置并监听文件变化，变化时重新解析、更新日志级别并触发回调.
func Load(path string, conf any) error {
	if err := decode(vInstance, path, conf); err != nil {
		return err
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		if unmarshalErr := vInstance.Unmarshal(conf); unmarshalErr != nil {
			slog.Error("reload config unmarshal failed", "error", unmarshalErr)
			return
		}

		if validateErr := validate.Struct(conf); validateErr != nil {
			slog.Error("reload config validation failed", "error", validateErr)
			return
		}

		applyLogLevel(conf)
		slog.Info("config hot-reloaded and validated successfully")

		if cfg, ok := conf.(*Config); ok {
			hookMu.Lock()
			hooks := append([]func(*Config){}, onReload...)
			hookMu.Unlock()
			for _, hook := range hooks {
				hook(cfg)
			}
		}
	})

	return nil
}

// applyLogLevel 如果配置中有日志级别，自动更新全局日志级别.
func applyLogLevel(conf any) {
	if c, ok := conf.(*Config); ok {
		logging.SetLevel(c.Log.Level)
		return
	}
	val := reflect.ValueOf(conf)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	logField := val.FieldByName("Log")
	if !logField.IsValid() || logField.Kind() != reflect.Struct {
		return
	}
	levelField := logField.FieldByName("Level")
	if levelField.IsValid() && levelField.Kind() == reflect.String {
		logging.SetLevel(levelField.String())
	}
}

// LoggingConfig 转换为 logging 包的配置.
func (c *Config) LoggingConfig(module string) logging.Config {
	name := c.Server.Name
	if name == "" {
		name = "svr"
	}
	return logging.Config{
		Service:      name,
		Module:       module,
		Level:        c.Log.Level,
		File:         c.Log.File,
		Console:      c.Log.Console,
		ConsoleLevel: c.Log.ConsoleLevel,
		MaxSize:      c.Log.MaxSize,
		MaxBackups:   c.Log.MaxBackups,
		MaxAge:       c.Log.MaxAge,
		Compress:     c.Log.Compress,
	}
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	maskedJSON, err := Masked(conf)
	if err != nil {
		slog.Error("failed to mask config", "error", err)
		return
	}
	slog.Info("Current effective configuration", "config", maskedJSON)
}

// Masked 返回敏感字段被替换后的 JSON 文本.
func Masked(conf any) (string, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return "", err
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		return "", err
	}

	mask(configMap)

	out, err := json.MarshalIndent(configMap, "  ", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "accesskey", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
