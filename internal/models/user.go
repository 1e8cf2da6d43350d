package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewUser(email, passwordHash string, role UserRole, now time.Time) *User {
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Session is the signed-in pointer kept by the store.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
}

type Settings struct {
	RegistrationEnabled *bool `json:"registrationEnabled,omitempty"`
}

// RegistrationOpen defaults to true when the flag was never written.
func (s Settings) RegistrationOpen() bool {
	return s.RegistrationEnabled == nil || *s.RegistrationEnabled
}
