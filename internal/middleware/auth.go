package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/taptosell-commerce/internal/auth"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID   = "userID"
	KeyUserRole = "userRole"
)

// AuthMiddleware is the "security guard": it requires a valid bearer token
// and puts the caller's id and role on the context.
func AuthMiddleware(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. The header must be "Bearer <token>".
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. Validate it.
		userID, role, err := tokens.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. Hand the identity to the next handler.
		c.Set(KeyUserID, userID)
		c.Set(KeyUserRole, role)
		c.Next()
	}
}

// RequireRoles lets the request through only if the caller has one of the
// given roles. It must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(KeyUserRole)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context (AuthMiddleware must run first)"})
			return
		}
		r, _ := role.(models.Role)
		if !auth.Authorize(roles, r) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Insufficient role"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" if AuthMiddleware did not run.
func UserID(c *gin.Context) string {
	return c.GetString(KeyUserID)
}
