package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/vkoval/minelink/internal/config"
)

type CtxKey int

const (
	CtxPlayerClaims CtxKey = iota
)

// Auth parses the session cookies and, when they verify, injects the
// player claims into the request context. Bad or missing cookies clear
// the session and the request proceeds anonymously; handlers that need
// a player check the context themselves.
func Auth(cookies *config.Cookies) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := cookies.ParsePlayerClaims(r)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					cookies.Clear(w)
				}
				h.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), CtxPlayerClaims, claims)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlayerClaims extracts claims set by [Auth], nil when the request is
// anonymous.
func PlayerClaims(ctx context.Context) *config.PlayerClaims {
	claims, _ := ctx.Value(CtxPlayerClaims).(*config.PlayerClaims)
	return claims
}
