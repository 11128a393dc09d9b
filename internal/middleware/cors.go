package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// Cors allows any origin with credentials. The API is cookie-authenticated
// and intended for browser clients served from arbitrary dev hosts.
func Cors() Middleware {
	options := cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	return cors.New(options).Handler
}
