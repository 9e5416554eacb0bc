package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents a console account as returned by the API
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Locale   string `json:"locale"`
}

// RegisterRequest represents the account creation payload forwarded to the API
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// LoginResponse represents the API login result
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// JWTClaims represents the access token claims
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// User roles constants
const (
	RoleAdmin     = "admin"
	RoleLawyer    = "lawyer"
	RoleUser      = "user"
	RoleHRManager = "hr_manager"
)

// IsValidRole checks if the role is valid
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleLawyer, RoleUser, RoleHRManager:
		return true
	default:
		return false
	}
}
