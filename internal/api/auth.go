package api

import (
	"encoding/json" // Raw body inspection
	"errors"        // Error matching
	"fmt"           // Message formatting
	"net/http"      // HTTP status codes
	"strconv"       // Retry-After header

	"campus_identity/internal/apperr"     // Error kinds
	"campus_identity/internal/domain"     // Importing domain models
	"campus_identity/internal/middleware" // Identity and throttling
	"campus_identity/internal/service"    // Account operations
	"campus_identity/internal/store"      // Update fields
	"campus_identity/internal/utils"      // Response helpers

	"github.com/gin-gonic/gin"         // Gin web framework
	"github.com/gin-gonic/gin/binding" // Body binding
	"github.com/sirupsen/logrus"       // Structured logging
)

// Request struct for registration, shared by every role
type RegisterRequest struct {
	Name               string      `json:"name" binding:"required,max=100"`                     // Display name
	Email              string      `json:"email" binding:"required,email,max=255"`              // Email address
	RegistrationNumber string      `json:"registrationNumber" binding:"required,max=64"`        // Institutional number
	Password           string      `json:"password" binding:"required,min=8,max=72"`            // Plaintext, hashed before storage
	Role               domain.Role `json:"role" binding:"required,oneof=student teacher admin"` // Account role
	Department         string      `json:"department" binding:"required,max=100"`               // Academic department
	ProfilePicture     string      `json:"profilePicture" binding:"omitempty,max=500"`          // Optional avatar
}

// Student fields read from the same body when role is student
type StudentFields struct {
	RollNumber string   `json:"rollNumber" binding:"required,max=64"`     // Unique roll number
	Batch      string   `json:"batch" binding:"required,max=16"`          // Intake year
	Semester   int      `json:"semester" binding:"required,min=1,max=10"` // Current semester
	Courses    []string `json:"courses"`                                  // Enrolled course refs
}

// Teacher fields read from the same body when role is teacher
type TeacherFields struct {
	EmployeeID     string             `json:"employeeId" binding:"required,max=64"` // Unique employee id
	Designation    domain.Designation `json:"designation" binding:"required,oneof='Professor' 'Associate Professor' 'Assistant Professor' 'Lecturer' 'Visiting Faculty'"`
	Qualification  string             `json:"qualification" binding:"max=255"`  // Highest degree
	Experience     int                `json:"experience" binding:"min=0"`       // Years
	Specialization string             `json:"specialization" binding:"max=255"` // Field of expertise
	Courses        []string           `json:"courses"`                          // Course refs
	IsHOD          bool               `json:"isHOD"`                            // Head of department
}

// Request struct for login
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"` // Email or registration number
	Password   string `json:"password" binding:"required"`   // Password must be provided
}

// Request struct for profile updates, absent fields are left alone
type UpdateProfileRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`     // New display name
	Email          *string `json:"email" binding:"omitempty,email,max=255"`    // New email
	ProfilePicture *string `json:"profilePicture" binding:"omitempty,max=500"` // New avatar
}

// Request struct for password changes
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`          // Must match the stored hash
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"` // Replacement
}

// profileKeys are the body fields only student and teacher registrations carry
var profileKeys = []string{
	"rollNumber", "batch", "semester", "courses",
	"employeeId", "designation", "qualification", "experience", "specialization", "isHOD", "classesTaught",
}

// decodeRegistration reads the common fields and then the fields of the role
// from the same body
func decodeRegistration(c *gin.Context) (service.Registration, error) {
	var req RegisterRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return service.Registration{}, apperr.Validation(bindingMessage(err))
	}
	reg := service.Registration{Account: service.Account{
		Name:               req.Name,
		Email:              req.Email,
		RegistrationNumber: req.RegistrationNumber,
		Password:           req.Password,
		Role:               req.Role,
		Department:         req.Department,
		ProfilePicture:     req.ProfilePicture,
	}}

	switch req.Role {
	case domain.RoleStudent:
		var f StudentFields
		if err := c.ShouldBindBodyWith(&f, binding.JSON); err != nil {
			return service.Registration{}, apperr.Validation(bindingMessage(err))
		}
		reg.Profile = &service.StudentProfileInput{
			RollNumber: f.RollNumber,
			Batch:      f.Batch,
			Semester:   f.Semester,
			Courses:    f.Courses,
		}
	case domain.RoleTeacher:
		var f TeacherFields
		if err := c.ShouldBindBodyWith(&f, binding.JSON); err != nil {
			return service.Registration{}, apperr.Validation(bindingMessage(err))
		}
		reg.Profile = &service.TeacherProfileInput{
			EmployeeID:     f.EmployeeID,
			Designation:    f.Designation,
			Qualification:  f.Qualification,
			Experience:     f.Experience,
			Specialization: f.Specialization,
			Courses:        f.Courses,
			IsHOD:          f.IsHOD,
		}
	case domain.RoleAdmin:
		// Admins have no profile, so profile fields are a mistake rather than noise
		var body map[string]json.RawMessage
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			return service.Registration{}, apperr.Validation(bindingMessage(err))
		}
		for _, key := range profileKeys {
			if raw, ok := body[key]; ok && string(raw) != "null" {
				return service.Registration{}, apperr.Validation("admin accounts do not take profile fields")
			}
		}
	}
	return reg, nil
}

// RegisterHandler creates an account and its role profile
func RegisterHandler(registrar *service.Registrar, listings *utils.JSONCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg, err := decodeRegistration(c)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		res, err := registrar.Register(c.Request.Context(), reg)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		invalidateListings(c.Request.Context(), listings) // New user shows up in the admin listing
		utils.RespondOK(c, http.StatusCreated, res)       // Sanitized user and token
	}
}

// LoginHandler authenticates by email or registration number
func LoginHandler(accounts *service.Accounts, throttle *middleware.LoginThrottle) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, apperr.Validation(bindingMessage(err)))
			return
		}
		ctx := c.Request.Context()
		key := middleware.ThrottleKey(req.Identifier, c.ClientIP())
		if retry, locked := throttle.Locked(ctx, key); locked {
			seconds := int(retry.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(seconds))
			utils.RespondError(c, apperr.TooManyRequests(fmt.Sprintf("Too many failed attempts. Try again in %d seconds", seconds)))
			return
		}

		res, err := accounts.Login(ctx, req.Identifier, req.Password)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidCredentials) {
				throttle.RecordFailure(ctx, key)
				logrus.WithFields(logrus.Fields{
					"request_id": c.GetString(utils.RequestIDKey),
					"client_ip":  c.ClientIP(),
				}).Warn("login failed")
			}
			utils.RespondError(c, err)
			return
		}
		throttle.Reset(ctx, key)
		utils.RespondOK(c, http.StatusOK, res)
	}
}

// MeHandler returns the caller merged with its role summary
func MeHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.CurrentIdentity(c) // Set by Authenticate
		view, err := accounts.CurrentIdentity(c.Request.Context(), identity.ID)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondOK(c, http.StatusOK, view)
	}
}

// UpdateMeHandler changes the caller's name, email or profile picture
func UpdateMeHandler(accounts *service.Accounts, listings *utils.JSONCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, apperr.Validation(bindingMessage(err)))
			return
		}
		identity, _ := middleware.CurrentIdentity(c)
		user, err := accounts.UpdateProfile(c.Request.Context(), identity.ID, store.UserUpdate{
			Name:           req.Name,
			Email:          req.Email,
			ProfilePicture: req.ProfilePicture,
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		invalidateListings(c.Request.Context(), listings) // Name or email may appear in cached pages
		utils.RespondOK(c, http.StatusOK, user)
	}
}

// ChangePasswordHandler replaces the caller's password and returns a new token
func ChangePasswordHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, apperr.Validation(bindingMessage(err)))
			return
		}
		identity, _ := middleware.CurrentIdentity(c)
		res, err := accounts.ChangePassword(c.Request.Context(), identity.ID, req.CurrentPassword, req.NewPassword)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.RespondOK(c, http.StatusOK, gin.H{"token": res.Token})
	}
}
