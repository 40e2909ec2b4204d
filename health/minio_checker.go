package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gykovacs/vessel-sub003/config"
)

// MinioChecker 返回 MinIO 依赖健康检查函数，校验核缓存桶可访问。
func MinioChecker(cfg config.MinioConfig) Checker {
	return func() error {
		if cfg.Endpoint == "" {
			return errors.New("minio endpoint is empty")
		}

		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("minio client init failed: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()

		ok, err := client.BucketExists(ctx, cfg.BucketName)
		if err != nil {
			return fmt.Errorf("minio bucket check failed: %w", err)
		}
		if !ok {
			return fmt.Errorf("minio bucket %q does not exist", cfg.BucketName)
		}
		return nil
	}
}
