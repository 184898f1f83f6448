package auth

import "time"

// Role separates platform administrators from listing agents.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// User is an authenticated principal in the directory.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether u is an authenticated administrator. Safe on nil
// (anonymous) callers.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserUpdate is a partial profile update: nil fields are left untouched.
// Password carries plaintext at the service boundary and the bcrypt hash by
// the time it reaches the store.
type UserUpdate struct {
	Email    *string
	Name     *string
	Phone    *string
	Password *string
}
