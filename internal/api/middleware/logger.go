package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Logger seeds the request context with a logger scoped to the request id
// and tenant, and logs every request on entry and completion. Handlers add
// their own fields through ctxzap, so the whole turn shares the scope.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("owner_id", requestOwner(r)),
			)
			ctx := ctxzap.ToContext(r.Context(), reqLogger)

			reqLogger.Info("request started",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("request finished",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// requestOwner mirrors the handler layer's tenant resolution: the gateway
// sets X-Owner-ID, absent means the single-tenant default.
func requestOwner(r *http.Request) string {
	if owner := r.Header.Get("X-Owner-ID"); owner != "" {
		return owner
	}
	return "default"
}
