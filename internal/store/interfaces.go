package store

import (
	"context" // Request-scoped queries
	"errors"  // Sentinel errors
	"time"    // Password change stamps

	"campus_identity/internal/credential" // Password digests
	"campus_identity/internal/domain"     // Importing domain models
)

// ErrNotFound is returned by lookups that match no visible record
var ErrNotFound = errors.New("store: record not found")

// UserUpdate lists the only user fields a profile update may touch
type UserUpdate struct {
	Name           *string // New display name
	Email          *string // New email, normalized on write
	ProfilePicture *string // New avatar reference
}

// Empty reports whether the update changes nothing
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.ProfilePicture == nil
}

// UserRepository is the identity store; FindActive* see only active rows, FindAny* see soft-deleted ones too
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	ExistsAny(ctx context.Context, email, registrationNumber string) (bool, error)
	FindActiveByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	FindActiveByID(ctx context.Context, id uint) (*domain.User, error)
	FindAnyByID(ctx context.Context, id uint) (*domain.User, error)
	Update(ctx context.Context, id uint, update UserUpdate) (*domain.User, error)
	SetPassword(ctx context.Context, id uint, hash credential.Hash, changedAt time.Time) error
	SoftDelete(ctx context.Context, id uint) error
	HardDelete(ctx context.Context, id uint) error
	ListActive(ctx context.Context, offset, limit int) ([]domain.User, int64, error)
	ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]domain.User, error)
}

// ProfileRepository is the role profile store
type ProfileRepository interface {
	CreateStudentProfile(ctx context.Context, userID uint, profile *domain.StudentProfile) error
	CreateTeacherProfile(ctx context.Context, userID uint, profile *domain.TeacherProfile) error
	FindStudentByUserID(ctx context.Context, userID uint) (*domain.StudentProfile, error)
	FindTeacherByUserID(ctx context.Context, userID uint) (*domain.TeacherProfile, error)
	FindByUserID(ctx context.Context, userID uint, role domain.Role) (domain.Profile, error)
}

// Repository groups the stores and runs work inside one transaction
type Repository interface {
	Users() UserRepository
	Profiles() ProfileRepository
	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
}
