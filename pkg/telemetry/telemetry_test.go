package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	UseProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { setGlobal(nil) })
	return rec
}

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, tel)
	assert.NoError(t, Shutdown(context.Background()))

	_, err = Init(context.Background(), nil)
	require.NoError(t, err)
}

func TestStartSpan_RecordError(t *testing.T) {
	rec := setupRecorder(t)

	ctx, span := StartSpan(context.Background(), "service.zone.list")
	assert.NotEmpty(t, GetTraceID(ctx))
	RecordError(span, errors.New("db down"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "service.zone.list", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestTracingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := setupRecorder(t)

	r := gin.New()
	r.Use(TracingMiddleware())
	r.GET("/zones/:id", func(c *gin.Context) {
		assert.NotEmpty(t, GetTraceID(c.Request.Context()))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/zones/42", nil))

	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /zones/:id", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
