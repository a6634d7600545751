package user

import (
	"errors"
	"strings"
)

// CreateUserDTO is the request payload for provisioning an operator.
type CreateUserDTO struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

func (dto CreateUserDTO) Validate() error {
	if dto.FullName == "" {
		return errors.New("full name is required")
	}
	if dto.Email == "" || !strings.Contains(dto.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(dto.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if dto.Role == "" {
		return errors.New("role is required")
	}
	return nil
}

// ResetPasswordDTO carries the replacement password for a user.
type ResetPasswordDTO struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (dto ResetPasswordDTO) Validate() error {
	if len(dto.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
