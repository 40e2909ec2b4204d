package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gykovacs/vessel-sub003/cache"
	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/dataset"
	"github.com/gykovacs/vessel-sub003/idgen"
	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/kernelcache"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/retry"
	"github.com/gykovacs/vessel-sub003/storage"
	"github.com/gykovacs/vessel-sub003/svr"
)

const defaultCacheDir = ".svr-cache"

// env 是一次命令运行共享的基础设施。
type env struct {
	conf    *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	svr     *metrics.SVRMetrics
	ids     idgen.Generator
}

func newEnv(path, module string, watch bool) (*env, error) {
	conf := &config.Config{}
	load := config.Decode
	if watch {
		load = config.Load
	}
	if err := load(path, conf); err != nil {
		return nil, err
	}
	logging.InitLogger(conf.LoggingConfig(module))
	logger := logging.Default()
	config.PrintWithMask(conf)

	m := metrics.NewMetrics(serviceName(conf))
	m.RegisterBuildInfo(serviceName(conf), version, svr.ModelTag)

	ids, err := idgen.NewGenerator(conf.Snowflake)
	if err != nil {
		return nil, err
	}
	return &env{
		conf:    conf,
		logger:  logger,
		metrics: m,
		svr:     metrics.NewSVRMetrics(m),
		ids:     ids,
	}, nil
}

func serviceName(conf *config.Config) string {
	if conf.Server.Name != "" {
		return conf.Server.Name
	}
	return "svr"
}

func trainerConfig(c config.TrainerConfig) svr.Config {
	return svr.Config{
		C:                c.C,
		Epsilon:          c.Epsilon,
		Tol:              c.Tol,
		MaxIteration:     c.MaxIteration,
		CheckInterval:    c.CheckInterval,
		SnapshotInterval: c.SnapshotInterval,
		GradientWorkers:  c.GradientWorkers,
		SelectionWorkers: c.SelectionWorkers,
		KernelWorkers:    c.KernelWorkers,
	}
}

// newTrainer 按配置组装训练器。store 为 nil 时不缓存核矩阵。
func (e *env) newTrainer(store kernelcache.Store, namespace string) (*svr.Trainer, error) {
	k, err := kernel.Parse(e.conf.Kernel.Descriptor)
	if err != nil {
		return nil, err
	}
	opts := []svr.Option{
		svr.WithKernel(k),
		svr.WithLogger(e.logger),
		svr.WithMetrics(e.svr),
		svr.WithRunIDs(e.ids),
	}
	if d := e.conf.Kernel.CrossDescriptor; d != "" {
		cross, err := kernel.Parse(d)
		if err != nil {
			return nil, err
		}
		opts = append(opts, svr.WithCrossKernel(cross))
	}
	if expr := e.conf.Filter.Expression; expr != "" {
		pred, err := dataset.CompilePredicate(expr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, svr.WithDegenerateFilter(pred))
	}
	if store != nil {
		opts = append(opts,
			svr.WithStore(store, namespace),
			svr.WithStoreRetry(retry.FromConfig(e.conf.Store.Retry)),
		)
	}
	return svr.NewTrainer(trainerConfig(e.conf.Trainer), opts...)
}

// newStore 按 store.backend 创建核矩阵缓存，返回关闭函数。
func (e *env) newStore() (kernelcache.Store, func(), error) {
	sc := e.conf.Store
	noop := func() {}
	switch sc.Backend {
	case "":
		return nil, noop, nil
	case "memory":
		return kernelcache.NewMemoryStore(), noop, nil
	case "file":
		dir := sc.Dir
		if dir == "" {
			dir = defaultCacheDir
		}
		local, err := storage.NewLocalStorage(dir)
		if err != nil {
			return nil, nil, err
		}
		return kernelcache.NewObjectStore(local), noop, nil
	case "minio":
		client, err := storage.NewMinIOClient(e.conf.Minio, e.conf.CircuitBreaker, e.metrics)
		if err != nil {
			return nil, nil, err
		}
		storage.RegisterReloadHook(client)
		return kernelcache.NewObjectStore(client), noop, nil
	case "bigcache":
		bc, err := cache.NewBigCache(e.conf.BigCache)
		if err != nil {
			return nil, nil, err
		}
		return kernelcache.NewBlobStore(bc, sc.TTL), e.closer("bigcache", bc), nil
	case "redis":
		rc, err := e.redisCache()
		if err != nil {
			return nil, nil, err
		}
		return kernelcache.NewBlobStore(e.prefixed(rc), sc.TTL), e.closer("redis", rc), nil
	case "multilevel":
		bc, err := cache.NewBigCache(e.conf.BigCache)
		if err != nil {
			return nil, nil, err
		}
		rc, err := e.redisCache()
		if err != nil {
			_ = bc.Close()
			return nil, nil, err
		}
		ml := cache.NewMultiLevelCache(bc, e.prefixed(rc), e.logger)
		closeAll := func() {
			e.closer("bigcache", bc)()
			e.closer("redis", rc)()
		}
		return kernelcache.NewBlobStore(ml, sc.TTL), closeAll, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func (e *env) redisCache() (*cache.RedisCache, error) {
	return cache.NewRedisCache(e.conf.Redis, e.conf.CircuitBreaker, e.metrics, e.logger)
}

func (e *env) prefixed(rc *cache.RedisCache) *cache.RedisCache {
	if e.conf.Store.Prefix == "" {
		return rc
	}
	return rc.WithPrefix(e.conf.Store.Prefix)
}

func (e *env) closer(name string, c interface{ Close() error }) func() {
	return func() {
		if err := c.Close(); err != nil {
			e.logger.Error("failed to close kernel cache", "backend", name, "error", err)
		}
	}
}

// cacheNamespace 默认取数据文件名（不含扩展名），区分不同数据集的缓存。
func cacheNamespace(flagValue, dataPath string) string {
	if flagValue != "" {
		return flagValue
	}
	base := filepath.Base(dataPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadCSV(f)
}

func readMask(path string) ([]bool, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadMask(f)
}

// readKernelMatrix 读取与核缓存同格式的预计算核矩阵。
func readKernelMatrix(path string) ([][]float64, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := kernelcache.Decode(f, 0)
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, m.N())
	for i := range rows {
		rows[i] = append([]float64(nil), m.Row(i)...)
	}
	return rows, nil
}

func loadModel(t *svr.Trainer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	ok, err := t.LoadModel(f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a %s model", path, svr.ModelTag)
	}
	return nil
}
