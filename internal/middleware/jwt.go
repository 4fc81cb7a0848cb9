package middleware

import (
	"context" // Request context for lookups
	"errors"  // Error matching
	"strings" // String manipulation

	"campus_identity/internal/apperr" // Error kinds
	"campus_identity/internal/domain" // Importing domain models
	"campus_identity/internal/store"  // Store sentinel errors
	"campus_identity/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// identityKey is the gin context key holding the authenticated Identity
const identityKey = "identity"

// TokenVerifier is satisfied by *utils.TokenService
type TokenVerifier interface {
	Verify(tokenStr string) (*utils.TokenInfo, error)
}

// UserLoader is satisfied by store.UserRepository
type UserLoader interface {
	FindActiveByID(ctx context.Context, id uint) (*domain.User, error)
}

// Identity is the authenticated caller as seen by downstream handlers
type Identity struct {
	ID                 uint        `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	RegistrationNumber string      `json:"registrationNumber"`
	Role               domain.Role `json:"role"`
	Department         string      `json:"department"`
}

var (
	errMissingToken    = apperr.Authentication("Missing or invalid Authorization header")
	errInvalidToken    = apperr.Authentication("Invalid token")
	errExpiredToken    = apperr.Authentication("Token expired")
	errUserGone        = apperr.Authentication("User no longer exists")
	errPasswordChanged = apperr.Authentication("Password changed, please log in again")
)

// Authenticate validates the bearer token, loads the active user and attaches its Identity;
// tokens issued before the user's last password change are rejected
func Authenticate(tokens TokenVerifier, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		tokenStr = strings.TrimSpace(tokenStr)
		if !ok || tokenStr == "" {
			utils.RespondError(c, errMissingToken)
			return
		}

		info, err := tokens.Verify(tokenStr) // Check signature, algorithm and expiry
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				utils.RespondError(c, errExpiredToken)
			} else {
				utils.RespondError(c, errInvalidToken)
			}
			return
		}

		user, err := users.FindActiveByID(c.Request.Context(), info.UserID) // Soft-deleted users do not authenticate
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(c, errUserGone)
			return
		}
		if err != nil {
			utils.RespondError(c, apperr.Unexpected("load authenticated user", err))
			return
		}
		if user.PasswordChangedAfter(info.IssuedAt) {
			utils.RespondError(c, errPasswordChanged)
			return
		}

		c.Set(identityKey, &Identity{
			ID:                 user.ID,
			Name:               user.Name,
			Email:              user.Email,
			RegistrationNumber: user.RegistrationNumber,
			Role:               user.Role,
			Department:         user.Department,
		})
		c.Next() // Proceed to the next handler
	}
}

// CurrentIdentity returns the identity attached by Authenticate
func CurrentIdentity(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}
