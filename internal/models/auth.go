package models

import "github.com/golang-jwt/jwt/v5"

// ProfessorClaims is the JWT payload identifying the professor that owns a request.
type ProfessorClaims struct {
	ProfessorID string `json:"professor_id"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}
