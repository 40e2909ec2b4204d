// Package storage 定义对象存储接口及 MinIO / 本地文件系统驱动，用于持久化核矩阵缓存与模型文件。
package storage

import (
	"context"
	"io"
)

// Storage 定义了对象存储的通用接口，支持多驱动扩展。
// 对象不存在时 Download 返回满足 errors.Is(err, xerrors.ErrObjectNotFound) 的错误。
type Storage interface {
	// Upload 上传对象，size 为 -1 时由驱动自行探测长度
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error

	// Download 下载对象
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)

	// Exists 检查对象是否存在
	Exists(ctx context.Context, objectName string) (bool, error)

	// Delete 删除对象
	Delete(ctx context.Context, objectName string) error
}
