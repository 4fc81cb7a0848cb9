package service

import (
	"context" // Request context
	"strings" // String manipulation

	"campus_identity/internal/apperr"     // Error kinds
	"campus_identity/internal/credential" // Password policy
	"campus_identity/internal/domain"     // Importing domain models
	"campus_identity/internal/store"      // Persistence

	"github.com/sirupsen/logrus" // Structured logging
)

// Account holds the fields every registration carries
type Account struct {
	Name               string      // Display name
	Email              string      // Unique email
	RegistrationNumber string      // Unique institutional number
	Password           string      // Plaintext, hashed before storage
	Role               domain.Role // Account role
	Department         string      // Academic department
	ProfilePicture     string      // Optional avatar
}

// ProfileInput is the role-specific part of a registration; only *StudentProfileInput and *TeacherProfileInput implement it
type ProfileInput interface {
	role() domain.Role // Seals the interface to this package
	Validate() error
}

// StudentProfileInput carries the fields of a new student profile
type StudentProfileInput struct {
	RollNumber string   // Unique roll number
	Batch      string   // Intake year
	Semester   int      // 1 to 10
	Courses    []string // Enrolled course refs
}

func (*StudentProfileInput) role() domain.Role { return domain.RoleStudent }

// Validate checks the student fields
func (in *StudentProfileInput) Validate() error {
	switch {
	case strings.TrimSpace(in.RollNumber) == "":
		return apperr.Validation("rollNumber is required for students")
	case strings.TrimSpace(in.Batch) == "":
		return apperr.Validation("batch is required for students")
	case in.Semester < 1 || in.Semester > store.MaxSemester:
		return apperr.Validation("semester must be between 1 and 10")
	}
	return nil
}

// model converts the input into a profile row
func (in *StudentProfileInput) model() *domain.StudentProfile {
	return &domain.StudentProfile{
		RollNumber: strings.TrimSpace(in.RollNumber),
		Batch:      strings.TrimSpace(in.Batch),
		Semester:   in.Semester,
		Courses:    in.Courses,
	}
}

// TeacherProfileInput carries the fields of a new teacher profile
type TeacherProfileInput struct {
	EmployeeID     string             // Unique employee id
	Designation    domain.Designation // Academic rank
	Qualification  string             // Highest degree
	Experience     int                // Years, >= 0
	Specialization string             // Field of expertise
	Courses        []string           // Course refs
	IsHOD          bool               // Head of department
}

func (*TeacherProfileInput) role() domain.Role { return domain.RoleTeacher }

// Validate checks the teacher fields
func (in *TeacherProfileInput) Validate() error {
	switch {
	case strings.TrimSpace(in.EmployeeID) == "":
		return apperr.Validation("employeeId is required for teachers")
	case !in.Designation.Valid():
		return apperr.Validation("designation must be one of Professor, Associate Professor, Assistant Professor, Lecturer, Visiting Faculty")
	case in.Experience < 0:
		return apperr.Validation("experience must not be negative")
	}
	return nil
}

func (in *TeacherProfileInput) model() *domain.TeacherProfile {
	return &domain.TeacherProfile{
		EmployeeID:     strings.TrimSpace(in.EmployeeID),
		Designation:    in.Designation,
		Qualification:  in.Qualification,
		Experience:     in.Experience,
		Specialization: in.Specialization,
		Courses:        in.Courses,
		IsHOD:          in.IsHOD,
	}
}

// Registration is a complete registration request
type Registration struct {
	Account Account      // Common fields
	Profile ProfileInput // nil for admins
}

// Validate checks the account fields and that the profile variant matches the role
func (r Registration) Validate() error {
	a := r.Account
	switch {
	case strings.TrimSpace(a.Name) == "":
		return apperr.Validation("name is required")
	case strings.TrimSpace(a.Email) == "":
		return apperr.Validation("email is required")
	case strings.TrimSpace(a.RegistrationNumber) == "":
		return apperr.Validation("registrationNumber is required")
	case strings.TrimSpace(a.Department) == "":
		return apperr.Validation("department is required")
	case !a.Role.Valid():
		return apperr.Validation("role must be one of student, teacher, admin")
	}
	if !domain.ValidEmail(a.Email) {
		return apperr.Validation("email is not a valid address") // Bare addresses only, no display names
	}
	if err := credential.ValidatePassword(a.Password); err != nil {
		return apperr.Validation(err.Error())
	}

	// Admins carry no profile
	if !a.Role.HasProfile() {
		if r.Profile != nil {
			return apperr.Validation("admin accounts do not take profile fields")
		}
		return nil
	}
	if r.Profile == nil || r.Profile.role() != a.Role {
		return apperr.Validation("profile fields do not match role " + string(a.Role))
	}
	return r.Profile.Validate()
}

// Registrar creates accounts; the user row and its profile are written in one transaction,
// so a rejected profile leaves no user behind
type Registrar struct {
	repo   store.Repository // Users and profiles
	hasher PasswordHasher   // Password hashing
	tokens TokenIssuer      // Session tokens
}

// NewRegistrar creates a Registrar
func NewRegistrar(repo store.Repository, hasher PasswordHasher, tokens TokenIssuer) *Registrar {
	return &Registrar{repo: repo, hasher: hasher, tokens: tokens}
}

// Register validates reg, creates the user and its profile, and issues a token
func (r *Registrar) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	a := reg.Account

	// Reject taken emails and registration numbers, soft-deleted users included
	exists, err := r.repo.Users().ExistsAny(ctx, a.Email, a.RegistrationNumber)
	if err != nil {
		return nil, apperr.Unexpected("registration pre-check", err)
	}
	if exists {
		return nil, apperr.ErrUserExists
	}

	// Hash outside the transaction so no row lock waits on bcrypt
	hash, err := r.hasher.Hash(ctx, a.Password)
	if err != nil {
		return nil, apperr.Unexpected("hash password", err)
	}

	user := &domain.User{
		Name:               a.Name,
		Email:              a.Email,
		RegistrationNumber: a.RegistrationNumber,
		PasswordHash:       hash,
		Role:               a.Role,
		Department:         strings.TrimSpace(a.Department),
		ProfilePicture:     strings.TrimSpace(a.ProfilePicture),
	}
	// Create the user and its profile together; any error rolls both back
	err = r.repo.WithTransaction(ctx, func(tx store.Repository) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err // Includes a write-time uniqueness race
		}
		switch p := reg.Profile.(type) {
		case *StudentProfileInput:
			return tx.Profiles().CreateStudentProfile(ctx, user.ID, p.model())
		case *TeacherProfileInput:
			return tx.Profiles().CreateTeacherProfile(ctx, user.ID, p.model())
		}
		return nil
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"email": user.Email,
			"role":  user.Role,
			"error": err,
		}).Warn("registration rolled back")
		return nil, passThrough("create account", err)
	}

	token, err := r.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Unexpected("issue token", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return &AuthResult{User: user, Token: token}, nil
}
