package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_ScopesRequestAndTenant(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxzap.Info(r.Context(), "inside handler")
		w.WriteHeader(http.StatusCreated)
	})
	stack := chimiddleware.RequestID(Logger(zap.New(core))(h))

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("X-Owner-ID", "tenant-7")
	stack.ServeHTTP(httptest.NewRecorder(), req)

	started := logs.FilterMessage("request started").All()
	require.Len(t, started, 1)
	assert.Equal(t, "tenant-7", started[0].ContextMap()["owner_id"])
	assert.NotEmpty(t, started[0].ContextMap()["request_id"])

	finished := logs.FilterMessage("request finished").All()
	require.Len(t, finished, 1)
	assert.EqualValues(t, http.StatusCreated, finished[0].ContextMap()["status"])

	// The logger handed to the handler carries the same scope.
	inside := logs.FilterMessage("inside handler").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "tenant-7", inside[0].ContextMap()["owner_id"])
}

func TestLogger_DefaultsTenant(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	started := logs.FilterMessage("request started").All()
	require.Len(t, started, 1)
	assert.Equal(t, "default", started[0].ContextMap()["owner_id"])
}
