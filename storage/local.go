package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// LocalStorage 将对象保存为目录下的普通文件，对象名即相对路径。
type LocalStorage struct {
	dir string
}

// NewLocalStorage 创建以 dir 为根的本地存储，目录不存在时自动创建。
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.WrapInternal(err, "create storage dir")
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) path(objectName string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectName))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", xerrors.InvalidArg("invalid object name: " + objectName)
	}
	return filepath.Join(s.dir, clean), nil
}

// Upload 先写临时文件再重命名，读者不会看到写了一半的对象。
func (s *LocalStorage) Upload(ctx context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return xerrors.WrapInternal(err, "create object dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return xerrors.WrapInternal(err, "create temp object")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return xerrors.WrapInternal(err, "write object "+objectName)
	}
	if err := tmp.Close(); err != nil {
		return xerrors.WrapInternal(err, "close object "+objectName)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return xerrors.WrapInternal(err, "commit object "+objectName)
	}
	return nil
}

// Download 打开对象文件。
func (s *LocalStorage) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(objectName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.ErrObjectNotFound.With("%s", p)
		}
		return nil, xerrors.WrapInternal(err, "open object "+objectName)
	}
	return f, nil
}

// Exists 检查对象是否存在.
func (s *LocalStorage) Exists(_ context.Context, objectName string) (bool, error) {
	p, err := s.path(objectName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Delete 删除对象，不存在不视为错误。
func (s *LocalStorage) Delete(_ context.Context, objectName string) error {
	p, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
