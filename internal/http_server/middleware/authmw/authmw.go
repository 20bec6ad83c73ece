package authmw

import (
	"context"
	"net/http"
	"strings"

	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	"github.com/Chu-rill/Huddle/internal/lib/jwt"

	"github.com/go-chi/render"
)

type contextKey string

const claimsKey contextKey = "claims"

// New validates the Bearer access token and attaches its claims to the
// request context. Access tokens are stateless: signature and expiry only.
func New(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, r, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, r, "invalid authorization header format")
				return
			}

			claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
			if err != nil {
				unauthorized(w, r, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the verified token claims attached by New.
func Claims(ctx context.Context) (jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(jwt.Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp.Error(http.StatusUnauthorized, msg))
}
