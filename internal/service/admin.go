package service

import (
	"context" // Request context
	"errors"  // Error matching

	"campus_identity/internal/apperr" // Error kinds
	"campus_identity/internal/domain" // Importing domain models
	"campus_identity/internal/store"  // Persistence

	"github.com/sirupsen/logrus" // Structured logging
)

const (
	DefaultPageSize = 20  // Page size when none is given
	MaxPageSize     = 100 // Largest page served
)

// UserPage is one page of the admin user listing
type UserPage struct {
	Users    []domain.User `json:"users"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// Directory backs the admin user management endpoints
type Directory struct {
	repo store.Repository // Users
}

// NewDirectory creates a Directory
func NewDirectory(repo store.Repository) *Directory {
	return &Directory{repo: repo}
}

// ListUsers returns active users; page starts at 1 and out of range values are clamped
func (d *Directory) ListUsers(ctx context.Context, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	users, total, err := d.repo.Users().ListActive(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, apperr.Unexpected("list users", err)
	}
	if users == nil {
		users = []domain.User{} // Encode as [] rather than null
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

// Deactivate soft-deletes a user; an admin cannot deactivate themselves
func (d *Directory) Deactivate(ctx context.Context, actorID, userID uint) error {
	if actorID == userID {
		return apperr.Validation("admins cannot deactivate their own account")
	}
	if err := d.repo.Users().SoftDelete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return apperr.Unexpected("deactivate user", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "actor_id": actorID}).Info("user deactivated")
	return nil
}
