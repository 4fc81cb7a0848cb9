package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"campus_identity/internal/apperr"     // Error kinds
	"campus_identity/internal/middleware" // Caller identity
	"campus_identity/internal/store"      // Profile lookups
	"campus_identity/internal/utils"      // Response helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// StudentAttendanceHandler returns the calling student's attendance
func StudentAttendanceHandler(profiles store.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.CurrentIdentity(c)
		profile, err := profiles.FindStudentByUserID(c.Request.Context(), identity.ID)
		if err != nil {
			utils.RespondError(c, profileError(err))
			return
		}
		utils.RespondOK(c, http.StatusOK, gin.H{
			"rollNumber": profile.RollNumber, // Student roll number
			"semester":   profile.Semester,   // Current semester
			"attendance": profile.Attendance, // Per-course attendance
		})
	}
}

// TeacherClassesHandler returns the classes assigned to the calling teacher
func TeacherClassesHandler(profiles store.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.CurrentIdentity(c)
		profile, err := profiles.FindTeacherByUserID(c.Request.Context(), identity.ID)
		if err != nil {
			utils.RespondError(c, profileError(err))
			return
		}
		utils.RespondOK(c, http.StatusOK, gin.H{
			"employeeId":    profile.EmployeeID,    // Employee id
			"department":    identity.Department,   // Department from the identity
			"classesTaught": profile.ClassesTaught, // Assigned classes
		})
	}
}

func profileError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrProfileNotFound
	}
	return apperr.Unexpected("load profile", err)
}
