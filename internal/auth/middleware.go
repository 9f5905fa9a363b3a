// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"quiz-api/internal/httpx"
	"quiz-api/internal/models"
)

type contextKey struct{}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(contextKey{}).(*models.User)
	return user
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// JWTMiddleware rejects requests without a valid bearer token and stores the user in the context.
func JWTMiddleware(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := service.ResolveToken(r.Context(), TokenFromRequest(r))
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AdminOnly wraps a handler that needs the admin role. It must run behind JWTMiddleware.
func AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := RequireAdmin(UserFromContext(r.Context())); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		next(w, r)
	}
}

// Authorizer adapts ResolveToken for the websocket hub.
func (s *Service) Authorizer() func(r *http.Request) error {
	return func(r *http.Request) error {
		_, err := s.ResolveToken(r.Context(), TokenFromRequest(r))
		return err
	}
}
