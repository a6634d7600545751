package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/rbac"
)

type Repository interface {
	GetAll(ctx context.Context, limit, offset int) ([]*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	matrix *rbac.Matrix
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, matrix *rbac.Matrix, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		matrix: matrix,
		logger: logger,
	}
}

func (s *Service) ListUsers(ctx context.Context, actor *auth.User, limit, offset int) ([]*User, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceUsers, rbac.ActionView) {
		s.logger.Warn("user list denied", "user_id", actor.ID, "role", actor.Role)
		return nil, internal.ErrPermissionDenied
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

func (s *Service) CreateUser(ctx context.Context, actor *auth.User, dto CreateUserDTO) (*User, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceUsers, rbac.ActionCreate) {
		s.logger.Warn("user create denied", "user_id", actor.ID, "role", actor.Role)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if existing, err := s.repo.GetByEmail(ctx, dto.Email); err == nil && existing != nil {
		return nil, internal.NewConflictError("email already registered", internal.ErrCodeDuplicateEmail)
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("could not create user", err)
	}

	now := time.Now()
	u := &User{
		FullName:     dto.FullName,
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         string(rbac.ResolveRole(dto.Role)),
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	s.logger.Info("user created", "new_user_id", u.ID, "role", u.Role, "created_by", actor.ID)
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, actor *auth.User, id int64, dto ResetPasswordDTO) error {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceUsers, rbac.ActionResetPassword) {
		s.logger.Warn("password reset denied", "user_id", actor.ID, "role", actor.Role, "target_id", id)
		return internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return internal.ErrUserNotFound
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return internal.NewInternalError("could not reset password", err)
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		s.logger.Error("failed to reset password", "error", err, "target_id", id)
		return err
	}

	s.logger.Info("password reset", "target_id", id, "reset_by", actor.ID)
	return nil
}

// DeactivateUser turns off an account without deleting it, so leads
// assigned to the user keep a valid reference.
func (s *Service) DeactivateUser(ctx context.Context, actor *auth.User, id int64) error {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceUsers, rbac.ActionDelete) {
		s.logger.Warn("user deactivation denied", "user_id", actor.ID, "role", actor.Role, "target_id", id)
		return internal.ErrPermissionDenied
	}

	if actor.ID == id {
		return internal.NewValidationError("cannot deactivate your own account", internal.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return internal.ErrUserNotFound
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusInactive); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "target_id", id)
		return err
	}

	s.logger.Info("user deactivated", "target_id", id, "deactivated_by", actor.ID)
	return nil
}
