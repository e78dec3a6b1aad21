package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/api/docs"
	"github.com/protolab/prototype-backend/internal/api/middleware"
	sessionapi "github.com/protolab/prototype-backend/internal/api/session"
	"github.com/protolab/prototype-backend/internal/pkg/response"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(sessionHandler *sessionapi.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                  // Recover from panics
	r.Use(chimiddleware.RequestID)                  // Add request ID
	r.Use(middleware.Logger(logger))                // Log requests
	r.Use(middleware.CORS)                          // Handle CORS
	r.Use(chimiddleware.Timeout(300 * time.Second)) // Generous: chat turns call the model

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Register routes
	sessionapi.RegisterRoutes(r, sessionHandler)

	return r
}
