package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/reelforge/reelforge-backend/pkg/config"
)

// CORS returns middleware that applies the configured allowed-origin policy.
// The default origin is the local Vite dev server.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.Origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
