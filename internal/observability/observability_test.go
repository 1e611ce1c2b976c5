package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mzubac125/azure-sql-chatbot/internal/config"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "trace-1", TraceIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "trace-1", rr.Header().Get(traceHeader))
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, TraceIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, rr.Header().Get(traceHeader))
}

func TestTraceIDFromEmptyContext(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	h := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/schema", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/schema", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/schema", "200"))

	assert.Equal(t, before+1, after)
}

func TestObserveToolCall(t *testing.T) {
	ok := toolCallsTotal.WithLabelValues("sql_db_query", OutcomeOK)
	failed := toolCallsTotal.WithLabelValues("sql_db_query", OutcomeError)
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveToolCall("sql_db_query", time.Millisecond, nil)
	ObserveToolCall("sql_db_query", time.Millisecond, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger(config.LogConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger(config.LogConfig{Level: "loud"})
	assert.ErrorContains(t, err, "invalid LOG_LEVEL")
}
