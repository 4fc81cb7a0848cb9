package domain

import (
	"strings" // String normalization
	"time"    // Timestamps

	"campus_identity/internal/credential" // Password digests

	"github.com/go-playground/validator/v10" // Same rules gin binding applies
)

// Role identifies what a user may do in the portal
type Role string

const (
	RoleStudent Role = "student" // Student account with a StudentProfile
	RoleTeacher Role = "teacher" // Teacher account with a TeacherProfile
	RoleAdmin   Role = "admin"   // Administrator, no profile
)

// DefaultProfilePicture is used when registration supplies none
const DefaultProfilePicture = "default-avatar.png"

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// HasProfile reports whether accounts of this role carry a role profile
func (r Role) HasProfile() bool {
	return r == RoleStudent || r == RoleTeacher
}

// User Model
type User struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`                                   // Primary key
	Name               string          `gorm:"size:100;not null" json:"name"`                          // Display name
	Email              string          `gorm:"size:255;uniqueIndex;not null" json:"email"`             // Unique, lower-cased
	RegistrationNumber string          `gorm:"size:64;uniqueIndex;not null" json:"registrationNumber"` // Unique institutional number
	PasswordHash       credential.Hash `gorm:"column:password_hash;size:100;not null" json:"-"`        // Never serialized
	Role               Role            `gorm:"size:16;not null;index" json:"role"`                     // student, teacher or admin
	Department         string          `gorm:"size:100;not null" json:"department"`                    // Academic department
	ProfilePicture     string          `gorm:"size:500" json:"profilePicture"`                         // Avatar reference
	PasswordChangedAt  *time.Time      `json:"-"`                                                      // Last password change, nil if never
	Active             bool            `gorm:"not null;default:true;index" json:"active"`              // False once soft-deleted
	CreatedAt          time.Time       `json:"createdAt"`                                              // Creation timestamp
	UpdatedAt          time.Time       `json:"updatedAt"`                                              // Last update timestamp
}

// PasswordChangedAfter reports whether the password changed after a token was issued
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	return credential.ChangedAfter(u.PasswordChangedAt, issuedAt)
}

// emailRules checks bare addresses; display-name forms like "Bob <bob@x.com>" fail
var emailRules = validator.New()

// ValidEmail reports whether email is a single bare address
func ValidEmail(email string) bool {
	return emailRules.Var(strings.TrimSpace(email), "required,email") == nil
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRegistrationNumber trims a registration number
func NormalizeRegistrationNumber(reg string) string {
	return strings.TrimSpace(reg)
}

// IsEmailIdentifier reports whether a login identifier should be resolved as an email
func IsEmailIdentifier(identifier string) bool {
	return strings.Contains(identifier, "@")
}
