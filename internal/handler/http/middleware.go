package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/auth"
	"github.com/modastyle/backend/internal/user"
)

type contextKey string

const claimsKey contextKey = "claims"

// RequireAdmin rejects requests that do not carry a valid admin session token,
// either as a Bearer header or as the session cookie set at login.
func RequireAdmin(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				if cookie, err := r.Cookie(sessionCookieName); err == nil {
					tokenStr = cookie.Value
				}
			}
			if tokenStr == "" {
				respondWithError(w, http.StatusUnauthorized, "No autorizado")
				return
			}

			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected admin request")
				respondWithError(w, http.StatusUnauthorized, "No autorizado")
				return
			}
			if claims.Rol != user.RolAdmin {
				respondWithError(w, http.StatusUnauthorized, "No autorizado")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified session claims, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
