package kernelcache

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/retry"
	"github.com/gykovacs/vessel-sub003/tracing"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Loader 先查缓存，未命中时构建并回写。
type Loader struct {
	Store     Store // 为空时每次都重新构建
	Namespace string
	Build     BuildOptions
	Logger    *logging.Logger
	Metrics   *metrics.SVRMetrics
	Retry     retry.Config // 仅对 ErrStoreUnavailable 重试
}

func transient(err error) bool {
	return errors.Is(err, xerrors.ErrStoreUnavailable)
}

func (l *Loader) load(ctx context.Context, key Key) (data []byte, err error) {
	err = retry.Do(ctx, l.Retry, transient, func() error {
		data, err = l.Store.Load(ctx, key)
		return err
	})
	return data, err
}

func (l *Loader) save(ctx context.Context, key Key, data []byte) error {
	return retry.Do(ctx, l.Retry, transient, func() error {
		return l.Store.Save(ctx, key, data)
	})
}

func (l *Loader) logger() *logging.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return logging.Default()
}

func (l *Loader) count(result string) {
	if l.Metrics != nil {
		l.Metrics.KernelCache.WithLabelValues(result).Inc()
	}
}

// Get 返回样本在核函数 k 下的 Gram 矩阵及其来源（metrics.CacheHit / metrics.CacheBuild）。
// 读取错误（未命中除外）与解码错误直接返回；回写失败只记录日志。
func (l *Loader) Get(ctx context.Context, samples [][]float64, k kernel.Function) (*Matrix, string, error) {
	ctx, span := tracing.StartSpan(ctx, "svr.KernelCache")
	defer span.End()

	key := Key{N: len(samples), Tag: kernel.Tag(k), Namespace: l.Namespace}
	tracing.AddTag(ctx, "kernel.cache_key", key.Name())
	tracing.AddTag(ctx, "kernel.descriptor", k.Descriptor())

	if l.Store != nil {
		data, err := l.load(ctx, key)
		switch {
		case err == nil:
			m, derr := Decode(bytes.NewReader(data), key.N)
			if derr != nil {
				tracing.SetError(ctx, derr)
				return nil, "", derr
			}
			l.count(metrics.CacheHit)
			l.logger().InfoContext(ctx, "kernel cache loaded", "key", key.Name())
			return m, metrics.CacheHit, nil
		case errors.Is(err, xerrors.ErrCacheMiss):
			l.count(metrics.CacheMiss)
		default:
			tracing.SetError(ctx, err)
			return nil, "", xerrors.Wrap(err, xerrors.ErrUnavailable, "load kernel cache "+key.Name())
		}
	}

	l.logger().InfoContext(ctx, "filling kernel cache", "n", key.N, "kernel", k.Descriptor())
	start := time.Now()
	m, err := Build(ctx, samples, k, l.Build)
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, "", err
	}
	if l.Metrics != nil {
		l.Metrics.KernelBuild.Observe(time.Since(start).Seconds())
	}
	l.count(metrics.CacheBuild)
	l.logger().InfoContext(ctx, "filling kernel cache finished", "n", key.N, "duration", time.Since(start))

	if l.Store != nil {
		var buf bytes.Buffer
		if err := m.Encode(&buf); err != nil {
			l.logger().WarnContext(ctx, "encode kernel cache failed", "key", key.Name(), "error", err)
		} else if err := l.save(ctx, key, buf.Bytes()); err != nil {
			l.logger().WarnContext(ctx, "save kernel cache failed", "key", key.Name(), "error", err)
		}
	}
	return m, metrics.CacheBuild, nil
}
