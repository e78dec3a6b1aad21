// Package docs serves the API reference: Swagger UI backed by the static
// docs/swagger.yaml description.
package docs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const specPath = "docs/swagger.yaml"

// Handler returns the Swagger UI handler, pointed at the YAML description.
func Handler() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL("/"+specPath),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	)
}

// SpecHandler serves the raw YAML description.
func SpecHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		http.ServeFile(w, r, specPath)
	}
}

// RegisterRoutes mounts the documentation endpoints on the router.
func RegisterRoutes(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusFound)
	})

	r.Get("/docs/*", Handler())

	r.Get("/"+specPath, SpecHandler())
}
