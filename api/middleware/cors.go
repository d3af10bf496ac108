package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the storefront origin policy. The session token travels in a
// custom header, so it must be both allowed and exposed.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader, idempotencyHeader, "X-Request-Id"},
		ExposedHeaders:   []string{SessionHeader, "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
