package domain

import (
	"time" // Profile timestamps

	"gorm.io/datatypes" // JSON columns for embedded lists
)

// Designation is an academic rank
type Designation string

const (
	DesignationProfessor          Designation = "Professor"
	DesignationAssociateProfessor Designation = "Associate Professor"
	DesignationAssistantProfessor Designation = "Assistant Professor"
	DesignationLecturer           Designation = "Lecturer"
	DesignationVisitingFaculty    Designation = "Visiting Faculty"
)

// Valid reports whether d is a known rank
func (d Designation) Valid() bool {
	switch d {
	case DesignationProfessor, DesignationAssociateProfessor, DesignationAssistantProfessor,
		DesignationLecturer, DesignationVisitingFaculty:
		return true
	}
	return false
}

// ClassTaught is one class a teacher is assigned to
type ClassTaught struct {
	Course   string `json:"course"`
	Semester int    `json:"semester"`
	Batch    string `json:"batch"`
	Schedule string `json:"schedule"`
}

// TeacherProfile Model, 1:1 with a teacher User
type TeacherProfile struct {
	ID             uint                             `gorm:"primaryKey" json:"id"`                           // Primary key
	UserID         uint                             `gorm:"uniqueIndex;not null" json:"userId"`             // Owning user
	User           *User                            `gorm:"constraint:OnDelete:CASCADE;" json:"-"`          // Owning user row
	EmployeeID     string                           `gorm:"size:64;uniqueIndex;not null" json:"employeeId"` // Unique employee id
	Designation    Designation                      `gorm:"size:32;not null" json:"designation"`            // Academic rank
	Qualification  string                           `gorm:"size:255" json:"qualification"`                  // Highest degree
	Experience     int                              `gorm:"not null;default:0" json:"experience"`           // Years, >= 0
	Specialization string                           `gorm:"size:255" json:"specialization"`                 // Field of expertise
	Courses        datatypes.JSONSlice[string]      `json:"courses"`                                        // Course refs
	IsHOD          bool                             `gorm:"not null;default:false" json:"isHOD"`            // Head of department
	ClassesTaught  datatypes.JSONSlice[ClassTaught] `json:"classesTaught"`                                  // Assigned classes
	CreatedAt      time.Time                        `json:"createdAt"`
	UpdatedAt      time.Time                        `json:"updatedAt"`
}

// TeacherSummary is the slice of the profile merged into the current identity
type TeacherSummary struct {
	EmployeeID  string      `json:"employeeId"`
	Designation Designation `json:"designation"`
	IsHOD       bool        `json:"isHOD"`
}

// Summary returns the identity summary fields
func (p *TeacherProfile) Summary() TeacherSummary {
	return TeacherSummary{EmployeeID: p.EmployeeID, Designation: p.Designation, IsHOD: p.IsHOD}
}
