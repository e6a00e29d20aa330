package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// Cors admits the listed origins with credentials, so the auth cookies reach
// the game endpoints from the front end. An empty list admits any origin.
func Cors(origins []string) Middleware {
	options := cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return len(origins) == 0 || slices.Contains(origins, origin)
		},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
	return cors.New(options).Handler
}
