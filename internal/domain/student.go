package domain

import (
	"time" // Profile timestamps

	"gorm.io/datatypes" // JSON columns for embedded lists
)

// AttendanceRecord is one course's attendance tally
type AttendanceRecord struct {
	Course     string  `json:"course"`
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SemesterResult is the outcome of one semester
type SemesterResult struct {
	Semester int      `json:"semester"`
	Courses  []string `json:"courses"`
	CGPA     float64  `json:"cgpa"`
	Status   string   `json:"status"`
}

// StudentProfile Model, 1:1 with a student User
type StudentProfile struct {
	ID          uint                                  `gorm:"primaryKey" json:"id"`                           // Primary key
	UserID      uint                                  `gorm:"uniqueIndex;not null" json:"userId"`             // Owning user
	User        *User                                 `gorm:"constraint:OnDelete:CASCADE;" json:"-"`          // Owning user row
	RollNumber  string                                `gorm:"size:64;uniqueIndex;not null" json:"rollNumber"` // Unique roll number
	Batch       string                                `gorm:"size:16;not null" json:"batch"`                  // Intake year
	Semester    int                                   `gorm:"not null" json:"semester"`                       // 1 to 10
	Courses     datatypes.JSONSlice[string]           `json:"courses"`                                        // Enrolled course refs
	Attendance  datatypes.JSONSlice[AttendanceRecord] `json:"attendance"`                                     // Per-course attendance
	Results     datatypes.JSONSlice[SemesterResult]   `json:"results"`                                        // Semester results
	Payments    datatypes.JSONSlice[string]           `json:"payments"`                                       // Payment refs
	Assignments datatypes.JSONSlice[string]           `json:"assignments"`                                    // Assignment refs
	CreatedAt   time.Time                             `json:"createdAt"`
	UpdatedAt   time.Time                             `json:"updatedAt"`
}

// StudentSummary is the slice of the profile merged into the current identity
type StudentSummary struct {
	RollNumber string `json:"rollNumber"`
	Batch      string `json:"batch"`
	Semester   int    `json:"semester"`
}

// Summary returns the identity summary fields
func (p *StudentProfile) Summary() StudentSummary {
	return StudentSummary{RollNumber: p.RollNumber, Batch: p.Batch, Semester: p.Semester}
}
