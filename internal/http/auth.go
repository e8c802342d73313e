package http

import (
	"context"
	"net/http"
	"strings"

	"finwise/internal/auth"
	"finwise/internal/log"
)

type userKey struct{}

type principal struct {
	id       int64
	username string
}

// requireAuth accepts "Authorization: Bearer <token>" and stores the caller in
// the request context.
func requireAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				ErrorResponse(http.StatusUnauthorized, "missing bearer token").Write(w)
				return
			}
			if issuer == nil {
				ErrorResponse(http.StatusUnauthorized, "authentication not configured").Write(w)
				return
			}
			claims, err := issuer.Parse(strings.TrimSpace(token))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				ErrorResponse(http.StatusUnauthorized, "invalid or expired token").Write(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, principal{id: claims.UserID, username: claims.Username})
			logger := log.FromContext(ctx).With(log.FieldUserID, claims.UserID)
			next.ServeHTTP(w, r.WithContext(log.NewContext(ctx, logger)))
		})
	}
}

// currentUser is only valid behind requireAuth.
func currentUser(ctx context.Context) principal {
	p, _ := ctx.Value(userKey{}).(principal)
	return p
}
