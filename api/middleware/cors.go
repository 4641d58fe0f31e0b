package middleware

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// CORS allows the public base URL plus any configured origins. In dev every
// localhost port is accepted so separately served frontends work.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	var origins []string
	for _, o := range append([]string{app.BaseURL}, app.CORSOrigins...) {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if app.IsDev() {
		origins = append(origins, "http://localhost:*", "http://127.0.0.1:*")
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", "Datastar-Request", chimw.RequestIDHeader},
		ExposedHeaders: []string{chimw.RequestIDHeader, "Retry-After"},
		// Session cookies ride along on cross-origin calls.
		AllowCredentials: true,
		MaxAge:           300,
	})
}
