package model

import "time"

// UserRole distinguishes learners from platform administrators.
type UserRole string

const (
	RoleLearner UserRole = "LEARNER"
	RoleAdmin   UserRole = "ADMIN"
)

// User is a platform account. Learners take assessments; admins read
// results.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	XP           int       `json:"xp"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}
