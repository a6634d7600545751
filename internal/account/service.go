package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/rbac"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context, limit, offset int) ([]*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByName(ctx context.Context, name string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
}

type Service struct {
	repo   RepositoryAPI
	matrix *rbac.Matrix
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, matrix *rbac.Matrix, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		matrix: matrix,
		logger: logger,
	}
}

func (s *Service) ListAccounts(ctx context.Context, actor *auth.User, limit, offset int) ([]*Account, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceAccounts, rbac.ActionView) {
		s.logger.Warn("account list denied", "user_id", actor.ID, "role", actor.Role)
		return []*Account{}, nil
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	accounts, err := s.repo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list accounts", "error", err)
		return nil, err
	}
	return accounts, nil
}

func (s *Service) GetAccount(ctx context.Context, actor *auth.User, id int64) (*Account, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceAccounts, rbac.ActionView) {
		return nil, internal.ErrPermissionDenied
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get account", "error", err, "account_id", id)
		return nil, internal.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) CreateAccount(ctx context.Context, actor *auth.User, dto CreateAccountDTO) (*Account, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceAccounts, rbac.ActionCreate) {
		s.logger.Warn("account create denied", "user_id", actor.ID, "role", actor.Role)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if existing, err := s.repo.GetByName(ctx, dto.Name); err == nil && existing != nil {
		return nil, internal.NewConflictError("account with this name already exists", internal.ErrCodeDuplicateAccount)
	}

	now := time.Now()
	account := &Account{
		Name:      dto.Name,
		Domain:    dto.Domain,
		Industry:  dto.Industry,
		Size:      dto.Size,
		Website:   dto.Website,
		City:      dto.City,
		Country:   dto.Country,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		s.logger.Error("failed to create account", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("account created", "account_id", account.ID, "name", account.Name, "user_id", actor.ID)
	return account, nil
}

func (s *Service) UpdateAccount(ctx context.Context, actor *auth.User, id int64, dto UpdateAccountDTO) (*Account, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceAccounts, rbac.ActionEdit) {
		s.logger.Warn("account update denied", "user_id", actor.ID, "role", actor.Role, "account_id", id)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrAccountNotFound
	}

	applyUpdate(account, dto)
	account.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, account); err != nil {
		s.logger.Error("failed to update account", "error", err, "account_id", id)
		return nil, err
	}

	return account, nil
}

func applyUpdate(account *Account, dto UpdateAccountDTO) {
	if dto.Name != nil {
		account.Name = *dto.Name
	}
	if dto.Domain != nil {
		account.Domain = *dto.Domain
	}
	if dto.Industry != nil {
		account.Industry = *dto.Industry
	}
	if dto.Size != nil {
		account.Size = *dto.Size
	}
	if dto.Website != nil {
		account.Website = *dto.Website
	}
	if dto.City != nil {
		account.City = *dto.City
	}
	if dto.Country != nil {
		account.Country = *dto.Country
	}
}
