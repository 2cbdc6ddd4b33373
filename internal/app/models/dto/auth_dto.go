package dto

import (
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required,notblank" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// RegisterRequest creates a portal user; admin only
type RegisterRequest struct {
	Username string `json:"username" binding:"required,notblank,min=3,max=100" example:"coordinator1"`
	Password string `json:"password" binding:"required,min=6" example:"s3cret!"`
	Name     string `json:"name" binding:"required,notblank" example:"Nurse Joy"`
	Role     string `json:"role" binding:"omitempty,oneof=admin coordinator" example:"coordinator"`
}

// UserResponse represents basic user information
type UserResponse struct {
	ID       int64  `json:"id" example:"1"`
	Username string `json:"username" example:"admin"`
	Name     string `json:"name" example:"School Administrator"`
	Role     string `json:"role" example:"admin"`
}

// LoginResponse carries the bearer token and the authenticated user
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType" example:"Bearer"`
	ExpiresIn int64        `json:"expiresIn" example:"86400"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// FromUser converts a user model to its response
func FromUser(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     string(u.Role),
	}
}
