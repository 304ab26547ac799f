package otel

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"fairshare/pkg/config"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.OtelConfig{Enabled: false}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	shutdown()
}

func TestExporterOptions(t *testing.T) {
	t.Parallel()

	if got := len(exporterOptions("http://collector:4318")); got != 1 {
		t.Fatalf("url options = %d, want 1", got)
	}
	if got := len(exporterOptions("collector:4318")); got != 2 {
		t.Fatalf("host:port options = %d, want 2", got)
	}
}

func TestDBSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := DBSpan(context.Background(), "sqlite", "update")
	End(span, errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "db.update" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	if len(spans[0].Events()) == 0 {
		t.Fatal("error event not recorded")
	}
}

func TestInjectHeadersCarriesTraceparent(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	ctx, span := MQPublishSpan(context.Background(), "project.created", "fairshare.events")
	defer span.End()

	headers := map[string]interface{}{}
	InjectHeaders(ctx, headers)
	if _, ok := headers["traceparent"].(string); !ok {
		t.Fatalf("headers = %v, want traceparent", headers)
	}
}
