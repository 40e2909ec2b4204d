package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

func TestLocalStorageLifecycle(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	ctx := context.Background()
	name := "housing/kernel_cache_3_-1.data"

	if ok, err := s.Exists(ctx, name); ok || err != nil {
		t.Fatalf("Exists before upload = %v, %v", ok, err)
	}
	if _, err := s.Download(ctx, name); !errors.Is(err, xerrors.ErrObjectNotFound) {
		t.Fatalf("Download missing = %v", err)
	}

	if err := s.Upload(ctx, name, strings.NewReader("3\n1 0 0\n"), -1, "text/plain"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	rc, err := s.Download(ctx, name)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "3\n1 0 0\n" {
		t.Errorf("content = %q", data)
	}

	if err := s.Delete(ctx, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, name); err != nil {
		t.Errorf("second Delete should be a no-op: %v", err)
	}
}

func TestLocalStorageRejectsEscapingNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	for _, name := range []string{"../outside", "/etc/passwd", ".", ""} {
		if err := s.Upload(context.Background(), name, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("Upload(%q) should fail", name)
		}
	}
}

func TestLocalStorageHonoursCanceledContext(t *testing.T) {
	s, _ := NewLocalStorage(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Upload(ctx, "a", strings.NewReader("x"), 1, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
