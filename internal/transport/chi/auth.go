package chi

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ownerContextKey contextKey = "owner_id"

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware validates Bearer API keys and resolves them to
// owner identifiers stored in the request context. With an empty key map
// authentication is disabled and every request runs as the anonymous
// owner.
func BearerAuthMiddleware(apiKeys map[string]string) func(http.Handler) http.Handler {
	keys := make(map[string]string, len(apiKeys))
	for key, owner := range apiKeys {
		if key != "" && owner != "" {
			keys[key] = owner
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(ContextWithOwner(r.Context(), "anonymous")))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeBadRequest, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeBadRequest,
					"authorization header must use Bearer scheme")
				return
			}

			owner, ok := keys[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeBadRequest, "invalid api key")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithOwner(r.Context(), owner)))
		})
	}
}

// ContextWithOwner stores the authenticated owner ID in the context.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey, ownerID)
}

// OwnerFromContext returns the authenticated owner ID, or "" when the
// request did not pass through the auth middleware.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey).(string)
	return owner
}
