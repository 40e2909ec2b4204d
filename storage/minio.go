package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gykovacs/vessel-sub003/breaker"
	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/xerrors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient 实现了 Storage 接口，是对接 MinIO 或 S3 兼容存储系统的具体驱动。
type MinIOClient struct {
	mu     sync.RWMutex
	client *minio.Client
	bucket string
	cb     *breaker.Breaker
}

// NewMinIOClient 构造一个新的 MinIO 存储驱动。
func NewMinIOClient(cfg config.MinioConfig, cbCfg config.CircuitBreakerConfig, m *metrics.Metrics) (*MinIOClient, error) {
	client, err := newMinioClient(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	slog.Info("minio_client initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return &MinIOClient{
		client: client,
		bucket: cfg.BucketName,
		cb: breaker.NewBreaker(breaker.Settings{
			Name:      "minio-storage",
			Config:    cbCfg,
			IsFailure: func(err error) bool { return !errors.Is(err, xerrors.ErrObjectNotFound) },
		}, m),
	}, nil
}

func (c *MinIOClient) snapshot() (*minio.Client, string, error) {
	if c == nil {
		return nil, "", errors.New("minio client is nil")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, "", errors.New("minio client not initialized")
	}
	return c.client, c.bucket, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Upload 将数据流上传至绑定的存储桶。
func (c *MinIOClient) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	client, bucket, err := c.snapshot()
	if err != nil {
		return err
	}
	start := time.Now()
	err = c.cb.Execute(func() error {
		_, err := client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	})
	if err != nil {
		slog.Error("minio upload failed", "object", objectName, "error", err)
		return xerrors.Wrap(err, xerrors.ErrUnavailable, "minio upload "+objectName)
	}
	slog.Debug("minio upload successful", "object", objectName, "duration", time.Since(start))
	return nil
}

// Download 读取对象。GetObject 是惰性的，这里先 Stat 以便把 NoSuchKey 映射为未找到。
func (c *MinIOClient) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	client, bucket, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return breaker.ExecuteTyped(c.cb, func() (io.ReadCloser, error) {
		obj, err := client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := obj.Stat(); err != nil {
			obj.Close()
			if isNoSuchKey(err) {
				return nil, xerrors.ErrObjectNotFound.With("%s/%s", bucket, objectName)
			}
			return nil, err
		}
		return obj, nil
	})
}

// Delete 删除对象。
func (c *MinIOClient) Delete(ctx context.Context, objectName string) error {
	client, bucket, err := c.snapshot()
	if err != nil {
		return err
	}
	return c.cb.Execute(func() error {
		return client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{})
	})
}

// Exists 检查对象是否存在.
func (c *MinIOClient) Exists(ctx context.Context, objectName string) (bool, error) {
	client, bucket, err := c.snapshot()
	if err != nil {
		return false, err
	}
	return breaker.ExecuteTyped(c.cb, func() (bool, error) {
		_, err := client.StatObject(ctx, bucket, objectName, minio.StatObjectOptions{})
		if err != nil {
			if isNoSuchKey(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
}

// UpdateConfig 使用最新配置刷新 MinIO 客户端。
func (c *MinIOClient) UpdateConfig(cfg config.MinioConfig) error {
	if c == nil {
		return errors.New("minio client is nil")
	}
	client, err := newMinioClient(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey, cfg.UseSSL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.client = client
	c.bucket = cfg.BucketName
	c.mu.Unlock()

	slog.Info("minio client updated", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return nil
}

// RegisterReloadHook 注册 MinIO 客户端热更新回调。
func RegisterReloadHook(client *MinIOClient) {
	if client == nil {
		return
	}
	config.RegisterReloadHook(func(updated *config.Config) {
		if updated == nil {
			return
		}
		if err := client.UpdateConfig(updated.Minio); err != nil {
			slog.Error("minio client reload failed", "error", err)
		}
	})
}

func newMinioClient(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		slog.Error("failed to create minio client", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}
