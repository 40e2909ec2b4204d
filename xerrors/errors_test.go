package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestDerivedErrorsMatchSentinel(t *testing.T) {
	err := ErrDimMismatch.With("sample %d has %d features", 3, 2)
	if !errors.Is(err, ErrDimMismatch) {
		t.Fatal("derived error should match its sentinel")
	}
	if errors.Is(err, ErrEmptyData) {
		t.Error("derived error must not match a different sentinel")
	}
	if ErrDimMismatch.Detail == err.Detail {
		t.Error("With must not modify the sentinel")
	}
}

func TestFromErrorWalksChain(t *testing.T) {
	base := ErrNotTrained.With("no model")
	wrapped := fmt.Errorf("regress: %w", base)
	e, ok := FromError(wrapped)
	if !ok || e != base {
		t.Fatalf("FromError = %v, %v", e, ok)
	}
	if _, ok := FromError(errors.New("plain")); ok {
		t.Error("plain error should not convert")
	}
}

func TestWrapKeepsTypeAndCode(t *testing.T) {
	w := Wrap(ErrStoreUnavailable.With("redis"), ErrInternal, "load kernel cache")
	if w.Type != ErrUnavailable || w.Code != ErrStoreUnavailable.Code {
		t.Errorf("wrap = %v/%d", w.Type, w.Code)
	}
	if Wrap(nil, ErrInternal, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	plain := WrapInternal(errors.New("disk"), "write")
	if plain.Type != ErrInternal || plain.Unwrap() == nil {
		t.Errorf("WrapInternal type = %v", plain.Type)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		http int
		grpc codes.Code
	}{
		{ErrInvalidConfig, http.StatusBadRequest, codes.InvalidArgument},
		{ErrCacheMiss, http.StatusNotFound, codes.NotFound},
		{ErrNotTrained, http.StatusConflict, codes.FailedPrecondition},
		{ErrMalformedModel, http.StatusInternalServerError, codes.DataLoss},
		{ErrStoreUnavailable, http.StatusServiceUnavailable, codes.Unavailable},
		{ErrTrainingCanceled, 499, codes.Canceled},
	}
	for _, c := range cases {
		if got := c.err.HTTPStatus(); got != c.http {
			t.Errorf("%s: HTTPStatus = %d, want %d", c.err.Message, got, c.http)
		}
		if got := c.err.ToGRPCStatus().Code(); got != c.grpc {
			t.Errorf("%s: gRPC code = %v, want %v", c.err.Message, got, c.grpc)
		}
	}
}

func TestErrorString(t *testing.T) {
	e := ErrInvalidMask.WithCause(errors.New("bad bool"), "entry 4")
	want := "[InvalidArg] 400008: invalid mask: entry 4 (Cause: bad bool)"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
	if len(e.Stack) == 0 {
		t.Error("stack not captured")
	}
}
