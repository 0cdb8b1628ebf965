package models

import "time"

// Employee is a field worker who signs in with a code and a 4-digit PIN.
// The PIN is only ever held in clear at creation/reset time.
type Employee struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	FullName   string    `db:"full_name" json:"full_name"`
	Department *string   `db:"department" json:"department,omitempty"`
	Active     bool      `db:"active" json:"active"`
	PINHash    string    `db:"pin_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeSession backs the opaque employee session cookie.
type EmployeeSession struct {
	Token      string    `db:"token" json:"-"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
