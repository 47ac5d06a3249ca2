package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens issued by the identity provider.
// StudentID and ClubID tie a STUDENT token to its tenant; staff tokens carry ClubID only.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	StudentID string   `json:"student_id,omitempty"`
	ClubID    string   `json:"club_id,omitempty"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the claims belong to an admin or trainer.
func (c *JWTClaims) IsStaff() bool {
	return c != nil && (c.Role == RoleAdmin || c.Role == RoleTrainer)
}
