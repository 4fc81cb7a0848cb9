package service

import (
	"context" // Request context
	"errors"  // Error matching
	"strings" // String manipulation

	"campus_identity/internal/apperr"     // Error kinds
	"campus_identity/internal/credential" // Password policy
	"campus_identity/internal/domain"     // Importing domain models
	"campus_identity/internal/store"      // Persistence

	"github.com/sirupsen/logrus" // Structured logging
)

// IdentityView is a user merged with the summary fields of its role profile
type IdentityView struct {
	*domain.User
	*domain.StudentSummary
	*domain.TeacherSummary
}

// Accounts serves login and the operations of an authenticated user on their own account
type Accounts struct {
	repo   store.Repository // Users and profiles
	hasher PasswordHasher   // Password checks
	tokens TokenIssuer      // Session tokens
}

// NewAccounts creates an Accounts service
func NewAccounts(repo store.Repository, hasher PasswordHasher, tokens TokenIssuer) *Accounts {
	return &Accounts{repo: repo, hasher: hasher, tokens: tokens}
}

// Login resolves identifier by email when it contains "@" and by registration number otherwise;
// unknown identifiers and wrong passwords fail identically, in the same time
func (s *Accounts) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.Validation("identifier and password are required")
	}

	user, err := s.repo.Users().FindActiveByIdentifier(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.VerifyDecoy(ctx, password) // Spend a bcrypt compare so a miss is not faster than a hit
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Unexpected("load user for login", err)
	}
	// Compare provided password with stored hash
	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		if ctx.Err() != nil {
			return nil, apperr.Unexpected("verify password", ctx.Err()) // Client gave up, not a bad password
		}
		return nil, apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Unexpected("issue token", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// CurrentIdentity returns the user and its role summary; a student or teacher without a profile is not found
func (s *Accounts) CurrentIdentity(ctx context.Context, userID uint) (*IdentityView, error) {
	user, err := s.findActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &IdentityView{User: user}
	if !user.Role.HasProfile() {
		return view, nil // Admins have no summary
	}

	profile, err := s.repo.Profiles().FindByUserID(ctx, user.ID, user.Role)
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithField("user_id", user.ID).Warn("user has no profile for its role")
		return nil, apperr.ErrProfileNotFound
	}
	if err != nil {
		return nil, apperr.Unexpected("load profile", err)
	}
	switch p := profile.(type) {
	case *domain.StudentProfile:
		summary := p.Summary()
		view.StudentSummary = &summary
	case *domain.TeacherProfile:
		summary := p.Summary()
		view.TeacherSummary = &summary
	}
	return view, nil
}

// UpdateProfile changes the name, email or profile picture of a user
func (s *Accounts) UpdateProfile(ctx context.Context, userID uint, update store.UserUpdate) (*domain.User, error) {
	if update.Email != nil && !domain.ValidEmail(*update.Email) {
		return nil, apperr.Validation("email is not a valid address")
	}
	user, err := s.repo.Users().Update(ctx, userID, update)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, passThrough("update user", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one and returns a fresh token;
// tokens issued before the change stop authenticating
func (s *Accounts) ChangePassword(ctx context.Context, userID uint, current, next string) (*AuthResult, error) {
	if current == "" {
		return nil, apperr.Validation("currentPassword is required")
	}
	if err := credential.ValidatePassword(next); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	user, err := s.findActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(ctx, current, user.PasswordHash) {
		if ctx.Err() != nil {
			return nil, apperr.Unexpected("verify password", ctx.Err())
		}
		return nil, apperr.Authentication("current password is incorrect")
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return nil, apperr.Unexpected("hash password", err)
	}
	changedAt := s.hasher.ChangeStamp() // Backdated so the new token stays valid
	if err := s.repo.Users().SetPassword(ctx, user.ID, hash, changedAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Unexpected("store password", err)
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Unexpected("issue token", err)
	}
	logrus.WithField("user_id", user.ID).Info("password changed")
	return &AuthResult{User: user, Token: token}, nil
}

// findActive loads an active user, mapping a miss to ErrUserNotFound
func (s *Accounts) findActive(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.repo.Users().FindActiveByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Unexpected("load user", err)
	}
	return user, nil
}

// passThrough keeps caller-facing errors and wraps everything else
func passThrough(msg string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Unexpected(msg, err)
}
