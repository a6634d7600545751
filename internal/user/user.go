package user

import (
	"errors"
	"time"
)

// User is a CRM operator account. Role is one of the fixed pipeline
// roles; unknown values are treated as the lowest-privilege role at
// permission-check time, never rejected at rest.
type User struct {
	ID           int64     `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
