package user

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is an annotator as known to the login flow
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile is the identity payload handed over by the OAuth provider
type Profile struct {
	ID      int64  `json:"id" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Upsert creates the user or overwrites email, name and avatar
	Upsert(ctx context.Context, u *User) error

	// GetByID returns ErrUserNotFound when the id is unknown
	GetByID(ctx context.Context, id int64) (*User, error)
}
