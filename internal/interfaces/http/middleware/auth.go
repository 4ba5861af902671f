package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/milkrun-inc/milkrun/internal/infrastructure/auth"
	"github.com/milkrun-inc/milkrun/internal/shared/constants"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
	"github.com/milkrun-inc/milkrun/internal/shared/utils"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	logger     logger.Interface
}

func NewAuthMiddleware(jwtService *auth.JWTService, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger,
	}
}

// RequireAuth validates the bearer token and stores the actor identity in the
// request context under the role-specific key.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.jwtService.Verify(parts[1])
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.TokenType != auth.TokenTypeAccess {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid token type")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserRole, claims.Role)
		switch claims.Role {
		case constants.RoleCustomer:
			c.Set(constants.ContextKeyCustomerSID, claims.SubjectSID)
		case constants.RolePartner:
			c.Set(constants.ContextKeyPartnerSID, claims.SubjectSID)
		case constants.RoleAdmin:
			// Admins carry no subject scoping.
		default:
			utils.ErrorResponse(c, http.StatusUnauthorized, "unknown actor role")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole restricts the route to one actor role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actual, exists := c.Get(constants.ContextKeyUserRole)
		if !exists || actual != role {
			utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
