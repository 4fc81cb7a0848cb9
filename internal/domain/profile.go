package domain

// Profile is the role-specific extension of a User
type Profile interface {
	OwnerID() uint
	ProfileRole() Role
}

func (p *StudentProfile) OwnerID() uint     { return p.UserID }
func (p *StudentProfile) ProfileRole() Role { return RoleStudent }
func (p *TeacherProfile) OwnerID() uint     { return p.UserID }
func (p *TeacherProfile) ProfileRole() Role { return RoleTeacher }
