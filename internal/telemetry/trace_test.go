package telemetry_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/admindash/internal/telemetry"
	"github.com/wolfeidau/admindash/internal/telemetry/telemetrytest"
)

func TestMiddleware_NamesSpanAfterRoute(t *testing.T) {
	rec := telemetrytest.RecordSpans(t)

	r := chi.NewRouter()
	r.Use(telemetry.Middleware)
	r.Get("/product/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, trace.SpanContextFromContext(r.Context()).IsValid())
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/product/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))

	spans := telemetrytest.Named(rec, "GET /product/{id}")
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.EqualValues(t, http.StatusNoContent, telemetrytest.Attr(spans[0], "http.response.status_code").AsInt64())
	assert.Equal(t, "/product/42", telemetrytest.Attr(spans[0], "url.path").AsString())

	broken := telemetrytest.Named(rec, "GET /broken")
	require.Len(t, broken, 1)
	assert.Equal(t, codes.Error, broken[0].Status().Code)
}

func TestInject_ContinuesTraceOnServer(t *testing.T) {
	rec := telemetrytest.RecordSpans(t)

	var header string
	handler := telemetry.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Traceparent")
	}))

	ctx, parent := telemetry.Tracer().Start(t.Context(), "caller")
	req := httptest.NewRequestWithContext(ctx, http.MethodGet, "/health", nil)
	telemetry.Inject(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	parent.End()

	require.NotEmpty(t, header)

	server := telemetrytest.Named(rec, http.MethodGet)
	require.Len(t, server, 1)
	assert.Equal(t, parent.SpanContext().TraceID(), server[0].SpanContext().TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), server[0].Parent().SpanID())
}

func TestEnd_RecordsError(t *testing.T) {
	rec := telemetrytest.RecordSpans(t)

	_, span := telemetry.Tracer().Start(t.Context(), "failing")
	telemetry.End(span, errors.New("backend unreachable"))
	_, span = telemetry.Tracer().Start(t.Context(), "fine")
	telemetry.End(span, nil)

	failing := telemetrytest.Named(rec, "failing")
	require.Len(t, failing, 1)
	assert.Equal(t, codes.Error, failing[0].Status().Code)
	assert.Equal(t, "backend unreachable", failing[0].Status().Description)
	require.Len(t, failing[0].Events(), 1)

	fine := telemetrytest.Named(rec, "fine")
	require.Len(t, fine, 1)
	assert.Equal(t, codes.Unset, fine[0].Status().Code)
}
