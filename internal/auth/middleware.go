package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/HerbHall/palette/internal/server"
)

type claimsKey struct{}

// ClaimsFromContext returns the authenticated caller, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return c
	}
	return nil
}

// WithClaims returns a context carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// AuthMiddleware validates bearer tokens on /api/ routes. Other paths
// (healthz, readyz, metrics, swagger) pass through, as do websocket paths,
// which authenticate with a token query parameter instead.
func AuthMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/api/v1/ws/") {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired access token")
				return
			}

			server.SetUser(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="palette"`)
	server.WriteProblem(w, server.Problem{
		Type:   server.ProblemTypeUnauthorized,
		Status: status,
		Detail: detail,
	})
}
