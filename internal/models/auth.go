package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a console user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Role     UserRole `json:"role"`
}

// EmployeeLoginRequest holds the PIN-pad credentials.
type EmployeeLoginRequest struct {
	Code string `json:"code" validate:"required"`
	PIN  string `json:"pin" validate:"required,len=4,numeric"`
}

// JWTClaims represents the JWT payload for access tokens. Role here is a
// client-visible convenience only; privileged mutations re-resolve the role
// from the system of record.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}
