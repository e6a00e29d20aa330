package middleware

import "net/http"

type Middleware func(http.Handler) http.Handler

// Wrap applies mws so that the last one listed runs first. The server wraps
// its router as Wrap(router, Auth, Cors, Logging): every request is logged,
// even those rejected by CORS, and handlers see the player's claims.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}
