package middleware

import (
	"slices" // Role membership

	"campus_identity/internal/apperr" // Error kinds
	"campus_identity/internal/domain" // Importing domain models
	"campus_identity/internal/utils"  // Response helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

var (
	errNotAuthenticated = apperr.Authentication("Unauthorized")
	errForbidden        = apperr.Authorization("You do not have permission to access this resource")
)

// Authorize admits callers whose role is one of roles; it must run after Authenticate
func Authorize(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c) // Get identity from context
		if !ok {
			utils.RespondError(c, errNotAuthenticated)
			return
		}
		if !slices.Contains(roles, identity.Role) {
			utils.RespondError(c, errForbidden)
			return
		}
		c.Next()
	}
}

// AdminOnly is Authorize(domain.RoleAdmin)
func AdminOnly() gin.HandlerFunc {
	return Authorize(domain.RoleAdmin)
}
