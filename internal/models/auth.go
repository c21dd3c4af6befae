package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload issued by the identity service
// and validated by this API.
type JWTClaims struct {
	UserID     string   `json:"user_id"`
	Role       UserRole `json:"role"`
	Email      string   `json:"email"`
	FullName   string   `json:"full_name"`
	ClassGroup string   `json:"class_group,omitempty"`
	jwt.RegisteredClaims
}
