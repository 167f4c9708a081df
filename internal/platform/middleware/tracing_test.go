package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

func newRecordingProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)), sr
}

func attr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	tp, sr := newRecordingProvider()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients/1", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/patients/:id")

	var traceID string
	h := Tracing(tp, propagation.TraceContext{})(func(c echo.Context) error {
		traceID, _ = c.Get("trace_id").(string)
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /api/patients/:id" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if traceID == "" || traceID != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace_id %s on context, got %q", span.SpanContext().TraceID(), traceID)
	}
	if got := attr(span.Attributes(), "http.response.status_code").AsInt64(); got != 200 {
		t.Errorf("expected status attribute 200, got %d", got)
	}
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	tp, sr := newRecordingProvider()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	c := e.NewContext(req, httptest.NewRecorder())

	Tracing(tp, propagation.TraceContext{})(okHandler)(c)

	span := sr.Ended()[0]
	if span.SpanContext().TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected incoming trace id, got %s", span.SpanContext().TraceID())
	}
	if span.Parent().SpanID().String() != "00f067aa0ba902b7" {
		t.Errorf("expected remote parent, got %s", span.Parent().SpanID())
	}
}

func TestTracing_MarksServerErrors(t *testing.T) {
	tp, sr := newRecordingProvider()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/lesions", nil), httptest.NewRecorder())

	Tracing(tp, propagation.TraceContext{})(func(c echo.Context) error {
		return apperr.Wrap(apperr.CodeInternal, "db down", nil)
	})(c)

	span := sr.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
	if got := attr(span.Attributes(), "http.response.status_code").AsInt64(); got != 500 {
		t.Errorf("expected status attribute 500, got %d", got)
	}
}
