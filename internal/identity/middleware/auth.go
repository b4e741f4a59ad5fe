package middleware

import (
	"context"
	"strings"

	"skillforge/internal/identity/repository"
	"skillforge/internal/identity/service"
	pkgerrors "skillforge/pkg/errors"
	"skillforge/pkg/utils/contextkey"
	"skillforge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey is the gin context key carrying the authenticated user id.
	UserIDKey = "user_id"
	// UserRoleKey is the gin context key carrying the authenticated role.
	UserRoleKey = "user_role"
)

// Authenticator validates a bearer token and returns the caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.AuthInfo, error)
}

// AuthMiddleware enforces token validation and restricts access to the given roles.
// An empty role list allows any authenticated caller.
func AuthMiddleware(authn Authenticator, roles ...repository.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authn == nil {
			response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "identity service unavailable")
			return
		}

		token := extractBearerToken(c.GetHeader("Authorization"))
		info, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		if len(roles) > 0 && !hasRole(info.Role, roles) {
			response.AbortWithErrorCode(c, pkgerrors.RoleNotAllowed, "")
			return
		}

		c.Set(UserIDKey, info.UserID)
		c.Set(UserRoleKey, info.Role)
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, info.UserID)
		ctx = context.WithValue(ctx, contextkey.UserRole, string(info.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CallerID returns the authenticated user id set by AuthMiddleware.
func CallerID(c *gin.Context) (int64, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}

// CallerRole returns the authenticated role set by AuthMiddleware.
func CallerRole(c *gin.Context) (repository.Role, bool) {
	value, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	role, ok := value.(repository.Role)
	return role, ok
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hasRole(role repository.Role, allowed []repository.Role) bool {
	for _, item := range allowed {
		if role == item {
			return true
		}
	}
	return false
}
