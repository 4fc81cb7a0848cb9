package store

import (
	"context" // Request-scoped queries
	"fmt"     // Error wrapping
	"strings" // String normalization
	"time"    // Password change stamps, orphan cutoff

	"campus_identity/internal/apperr"     // Error kinds
	"campus_identity/internal/credential" // Password digests
	"campus_identity/internal/domain"     // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// UserStore reads and writes the users table
type UserStore struct {
	db *gorm.DB // Connection or open transaction
}

// active limits a query to users that have not been soft-deleted
func active(db *gorm.DB) *gorm.DB {
	return db.Where("users.active = ?", true)
}

// validateUser checks the columns every stored user must carry
func validateUser(user *domain.User) error {
	switch {
	case strings.TrimSpace(user.Name) == "":
		return apperr.Validation("name is required")
	case user.Email == "":
		return apperr.Validation("email is required")
	case !domain.ValidEmail(user.Email):
		return apperr.Validation("email is not a valid address")
	case user.RegistrationNumber == "":
		return apperr.Validation("registration number is required")
	case user.PasswordHash.IsZero():
		return apperr.Validation("password is required") // Only a Manager-made digest gets past here
	case !user.Role.Valid():
		return apperr.Validation("role must be one of student, teacher, admin")
	case strings.TrimSpace(user.Department) == "":
		return apperr.Validation("department is required")
	}
	return nil
}

// Create inserts a new active user, normalizing email and registration number first
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)                                        // Lower-case, trimmed
	user.RegistrationNumber = domain.NormalizeRegistrationNumber(user.RegistrationNumber) // Trimmed
	user.Name = strings.TrimSpace(user.Name)
	if err := validateUser(user); err != nil {
		return err
	}
	if user.ProfilePicture == "" {
		user.ProfilePicture = domain.DefaultProfilePicture // Fall back to the default avatar
	}
	user.Active = true

	// The unique indexes decide races the pre-check could not see
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ExistsAny reports whether any user, active or not, holds the email or registration number
func (s *UserStore) ExistsAny(ctx context.Context, email, registrationNumber string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? OR registration_number = ?",
			domain.NormalizeEmail(email), domain.NormalizeRegistrationNumber(registrationNumber)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return count > 0, nil
}

// FindActiveByIdentifier resolves an identifier containing "@" by email, anything else by registration number
func (s *UserStore) FindActiveByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	q := s.db.WithContext(ctx).Scopes(active)
	if domain.IsEmailIdentifier(identifier) {
		q = q.Where("email = ?", domain.NormalizeEmail(identifier))
	} else {
		q = q.Where("registration_number = ?", domain.NormalizeRegistrationNumber(identifier))
	}

	var user domain.User // Fetch user from database
	if err := q.First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindActiveByID loads a user that has not been soft-deleted
func (s *UserStore) FindActiveByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Scopes(active).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindAnyByID ignores the active flag
func (s *UserStore) FindAnyByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Update changes name, email and profile picture only; the password column is not reachable from here
func (s *UserStore) Update(ctx context.Context, id uint, update UserUpdate) (*domain.User, error) {
	changes := map[string]any{} // Column name to new value
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		changes["name"] = name
	}
	if update.Email != nil {
		email := domain.NormalizeEmail(*update.Email)
		if email == "" {
			return nil, apperr.Validation("email must not be empty")
		}
		if !domain.ValidEmail(email) {
			return nil, apperr.Validation("email is not a valid address")
		}
		changes["email"] = email
	}
	if update.ProfilePicture != nil {
		changes["profile_picture"] = strings.TrimSpace(*update.ProfilePicture)
	}

	// Soft-deleted users cannot be updated
	if _, err := s.FindActiveByID(ctx, id); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		err := s.db.WithContext(ctx).Model(&domain.User{}).
			Where("id = ? AND active = ?", id, true).
			Updates(changes).Error
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apperr.ErrEmailTaken // Email is the only unique column reachable here
			}
			return nil, fmt.Errorf("update user %d: %w", id, err)
		}
	}
	return s.FindActiveByID(ctx, id) // Return the stored row
}

// SetPassword stores a new digest and the change stamp together
func (s *UserStore) SetPassword(ctx context.Context, id uint, hash credential.Hash, changedAt time.Time) error {
	if hash.IsZero() {
		return apperr.Validation("password is required")
	}
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{
			"password_hash":       hash,
			"password_changed_at": changedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("set password for user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound // Missing or soft-deleted
	}
	return nil
}

// SoftDelete marks the user inactive; the row keeps its email and registration number
func (s *UserStore) SoftDelete(ctx context.Context, id uint) error {
	// Deleting an already inactive user is a no-op
	if _, err := s.FindAnyByID(ctx, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("soft delete user %d: %w", id, err)
	}
	return nil
}

// HardDelete removes the row and releases its unique claims
func (s *UserStore) HardDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("hard delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns one page of active users ordered by id, with the total
func (s *UserStore) ListActive(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	var total int64 // Count of all active users
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Scopes(active).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []domain.User
	err := s.db.WithContext(ctx).Scopes(active).
		Order("id").    // Stable pages
		Offset(offset). // Skip earlier pages
		Limit(limit).   // Page size
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// ListOrphans returns active students and teachers created before createdBefore with no profile for their role
func (s *UserStore) ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]domain.User, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Select("users.*").
		Joins("LEFT JOIN student_profiles ON student_profiles.user_id = users.id").
		Joins("LEFT JOIN teacher_profiles ON teacher_profiles.user_id = users.id").
		Scopes(active).
		Where("users.created_at < ?", createdBefore). // Leave in-flight registrations alone
		Where("((users.role = ? AND student_profiles.id IS NULL) OR (users.role = ? AND teacher_profiles.id IS NULL))",
			domain.RoleStudent, domain.RoleTeacher).
		Order("users.id").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list orphan users: %w", err)
	}
	return users, nil
}
