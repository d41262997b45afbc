package models

import "time"

type UserRole string

const (
	UserRoleAdmin           UserRole = "admin"
	UserRoleOphthalmologist UserRole = "ophthalmologist"
	UserRoleTechnician      UserRole = "technician"
)

// CanReview reports whether the role is allowed to record a diagnostic
// decision. Technicians only add patients and read.
func (r UserRole) CanReview() bool {
	return r == UserRoleAdmin || r == UserRoleOphthalmologist
}

type User struct {
	ID           string
	Username     string
	FullName     string
	Role         UserRole
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Principal is the password-free identity handed out at login and carried
// inside a session.
type Principal struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"fullName"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
}

func (u User) Principal() Principal {
	return Principal{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
		Email:    u.Email,
	}
}
