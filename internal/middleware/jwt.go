package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/merchantkit/storesync/internal/pkg/errcode"
	"github.com/merchantkit/storesync/internal/pkg/jwt"
	"github.com/merchantkit/storesync/internal/pkg/response"
)

// Caller identity keys. Callers are upstream services (assistant backend,
// admin console), not end users.
const (
	ContextCallerIDKey   = "caller_id"
	ContextCallerRoleKey = "caller_role"
)

const RoleAdmin = "admin"

func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextCallerIDKey, claims.Subject)
		if claims.Role != "" {
			c.Set(ContextCallerRoleKey, claims.Role)
		}
		c.Next()
	}
}

// RequireRole gates operator endpoints (force unlock, manual trigger).
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(ContextCallerRoleKey)
		got, _ := value.(string)
		if got != role {
			response.Error(c, errcode.ErrUnauthorized, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}
