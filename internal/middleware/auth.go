package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ukydev/aivodrive/internal/auth"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	UserContextKey contextKey = "user"
)

// AuthMiddleware verifies bearer tokens and gates routes by role.
type AuthMiddleware struct {
	authService *auth.Service
	users       db.UserCollection
}

// NewAuthMiddleware creates the middleware. When users is non-nil every
// request also checks that the token's account still exists and is active.
func NewAuthMiddleware(authService *auth.Service, users db.UserCollection) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		users:       users,
	}
}

// Authenticate validates the bearer token and stores its claims on the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.authService.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if errors.Is(err, auth.ErrMissingToken) {
			response.Error(w, http.StatusUnauthorized, "Not authenticated, no token provided", "")
			return
		}
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Not authenticated, malformed authorization header", "")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			response.Error(w, http.StatusUnauthorized, "Not authenticated, token expired", "")
			return
		case err != nil:
			response.Error(w, http.StatusUnauthorized, "Not authenticated, invalid token", "")
			return
		}

		if m.users != nil {
			user, err := m.users.FindUserByID(r.Context(), claims.UserID)
			if err != nil || !user.IsActive {
				response.Error(w, http.StatusUnauthorized, "Not authenticated, account is not active", "")
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through only for the listed roles.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Not authenticated", "")
				return
			}
			if !models.HasRole(claims.Role, roles...) {
				response.Error(w, http.StatusForbidden, "Insufficient permissions", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}
