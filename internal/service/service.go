package service

import (
	"context" // Cancellation of hashing work
	"time"    // Password change stamps

	"campus_identity/internal/credential" // Password digests
	"campus_identity/internal/domain"     // Importing domain models
)

// PasswordHasher is satisfied by *credential.Manager
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (credential.Hash, error)
	Verify(ctx context.Context, candidate string, h credential.Hash) bool
	VerifyDecoy(ctx context.Context, candidate string) bool // Same cost as Verify, always false
	ChangeStamp() time.Time
}

// TokenIssuer is satisfied by *utils.TokenService
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// AuthResult is returned by registration, login and password change
type AuthResult struct {
	User  *domain.User `json:"user"`  // Sanitized user
	Token string       `json:"token"` // Session token
}
