package model

import "time"

// Role distinguishes what a user may do. Token issuance and login live
// outside this service; we only read the role from validated JWT claims
// and from the users table when joining submission listings.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// User is a platform account. PasswordHash is written by the provisioning
// CLI and never leaves this service.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
