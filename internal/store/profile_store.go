package store

import (
	"context" // Request-scoped queries
	"fmt"     // Error wrapping

	"campus_identity/internal/apperr" // Error kinds
	"campus_identity/internal/domain" // Importing domain models

	"gorm.io/datatypes" // JSON list columns
	"gorm.io/gorm"      // GORM ORM library
)

// MaxSemester is the highest semester a student can be enrolled in
const MaxSemester = 10

// ProfileStore reads and writes student and teacher profiles
type ProfileStore struct {
	db *gorm.DB // Connection or open transaction
}

// CreateStudentProfile attaches a student profile to userID
func (s *ProfileStore) CreateStudentProfile(ctx context.Context, userID uint, profile *domain.StudentProfile) error {
	if userID == 0 {
		return apperr.Validation("user id is required")
	}
	switch {
	case profile.RollNumber == "":
		return apperr.Validation("roll number is required")
	case profile.Batch == "":
		return apperr.Validation("batch is required")
	case profile.Semester < 1 || profile.Semester > MaxSemester:
		return apperr.Validation(fmt.Sprintf("semester must be between 1 and %d", MaxSemester))
	}
	profile.UserID = userID // Owning user
	// Store absent lists as empty
	profile.Courses = orEmpty(profile.Courses)
	profile.Attendance = orEmpty(profile.Attendance)
	profile.Results = orEmpty(profile.Results)
	profile.Payments = orEmpty(profile.Payments)
	profile.Assignments = orEmpty(profile.Assignments)

	// Omit the association so the user row is never upserted
	if err := s.db.WithContext(ctx).Omit("User").Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrRollNumberExists // Roll number or a second profile for the user
		}
		return fmt.Errorf("create student profile for user %d: %w", userID, err)
	}
	return nil
}

// CreateTeacherProfile attaches a teacher profile to userID
func (s *ProfileStore) CreateTeacherProfile(ctx context.Context, userID uint, profile *domain.TeacherProfile) error {
	if userID == 0 {
		return apperr.Validation("user id is required")
	}
	switch {
	case profile.EmployeeID == "":
		return apperr.Validation("employee id is required")
	case !profile.Designation.Valid():
		return apperr.Validation("designation is not a recognized academic rank")
	case profile.Experience < 0:
		return apperr.Validation("experience must not be negative")
	}
	profile.UserID = userID // Owning user
	profile.Courses = orEmpty(profile.Courses)
	profile.ClassesTaught = orEmpty(profile.ClassesTaught)

	if err := s.db.WithContext(ctx).Omit("User").Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrEmployeeIDExists // Employee id or a second profile for the user
		}
		return fmt.Errorf("create teacher profile for user %d: %w", userID, err)
	}
	return nil
}

// orEmpty turns a nil list into [] so the column never holds null
func orEmpty[T any](s datatypes.JSONSlice[T]) datatypes.JSONSlice[T] {
	if s == nil {
		return datatypes.JSONSlice[T]{}
	}
	return s
}

// FindStudentByUserID loads the student profile of userID
func (s *ProfileStore) FindStudentByUserID(ctx context.Context, userID uint) (*domain.StudentProfile, error) {
	var profile domain.StudentProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *ProfileStore) FindTeacherByUserID(ctx context.Context, userID uint) (*domain.TeacherProfile, error) {
	var profile domain.TeacherProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// FindByUserID loads the profile matching role; admins have none and get ErrNotFound
func (s *ProfileStore) FindByUserID(ctx context.Context, userID uint, role domain.Role) (domain.Profile, error) {
	switch role {
	case domain.RoleStudent:
		profile, err := s.FindStudentByUserID(ctx, userID)
		if err != nil {
			return nil, err // Never a typed nil inside the interface
		}
		return profile, nil
	case domain.RoleTeacher:
		profile, err := s.FindTeacherByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return profile, nil
	}
	return nil, ErrNotFound
}
