package http

import (
	"context"
	"net/http"

	"github.com/sagarc03/hashdrop/auth"
)

// IdentityResolver resolves an Authorization header value into a Resolution.
// Implemented by auth.Resolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) auth.Resolution
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityMiddleware resolves the caller's identity from the Authorization
// header and stores the result in the request context. It never rejects a
// request: handlers decide whether an anonymous or invalid resolution is
// acceptable for their operation.
func IdentityMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			ctx := context.WithValue(r.Context(), identityKey, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIdentity returns the resolution stored by IdentityMiddleware, or an
// anonymous resolution when the middleware did not run.
func RequestIdentity(r *http.Request) auth.Resolution {
	if res, ok := r.Context().Value(identityKey).(auth.Resolution); ok {
		return res
	}
	return auth.Anonymous()
}
