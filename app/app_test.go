package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeServer) Start(ctx context.Context) error {
	s.started.Store(true)
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := &fakeServer{}
	var order []int
	a := New("svr", quiet(),
		WithServer(srv),
		WithCleanup(func() { order = append(order, 1) }),
		WithCleanup(func() { order = append(order, 2) }),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !srv.stopped.Load() {
		t.Error("server was not stopped")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("cleanup order = %v, want [2 1]", order)
	}
}

func TestRunReturnsServerError(t *testing.T) {
	boom := errors.New("bind: address already in use")
	healthy := &fakeServer{}
	a := New("svr", quiet(), WithServer(healthy, &fakeServer{startErr: boom}))

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Run error = %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after server failure")
	}
	if !healthy.stopped.Load() {
		t.Error("healthy server was not stopped")
	}
}
