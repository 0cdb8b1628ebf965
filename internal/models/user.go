package models

import "time"

// UserRole is a canonical role key produced by ResolveRole.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

// Valid reports whether the role is one of the canonical keys.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Privileged reports whether the role may perform admin/manager operations.
func (r UserRole) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is an authenticated console account (admin/manager). The backing
// profile row may carry the role inline or via a role_id link; both shapes
// resolve through RoleSource.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     *string   `db:"full_name" json:"full_name,omitempty"`
	Role         *string   `db:"role" json:"role,omitempty"`
	RoleID       *string   `db:"role_id" json:"role_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
