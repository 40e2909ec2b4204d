package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gykovacs/vessel-sub003/config"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	shutdown, err := InitTracer(config.TracingConfig{})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("trace id without span = %q", id)
	}
}

func TestSpanTagsAndErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)

	ctx, span := StartSpan(context.Background(), "svr.Train")
	AddTag(ctx, "svr.n", 30)
	AddTag(ctx, "svr.kernel", "GaussianKernel 0.8")
	AddTag(ctx, "svr.gap", 0.001)
	SetError(ctx, errors.New("kernel returned NaN"))
	if GetTraceID(ctx) == "" {
		t.Error("trace id missing inside span")
	}
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "svr.Train" || s.Status().Code != codes.Error {
		t.Errorf("span = %s status %v", s.Name(), s.Status())
	}
	attrs := map[string]bool{}
	for _, a := range s.Attributes() {
		attrs[string(a.Key)] = true
	}
	for _, k := range []string{"svr.n", "svr.kernel", "svr.gap"} {
		if !attrs[k] {
			t.Errorf("attribute %s missing", k)
		}
	}
}
