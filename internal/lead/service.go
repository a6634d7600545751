package lead

import (
	"context"
	"log/slog"

	"github.com/wirebird/crm/internal"
	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/core/events"
	"github.com/wirebird/crm/internal/rbac"
)

// Repository defines the data access methods for leads.
type Repository interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id int64) (*Lead, error)
	List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error)
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, id int64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo     Repository
	matrix   *rbac.Matrix
	eventBus EventPublisher
	logger   *slog.Logger
}

func NewService(repo Repository, matrix *rbac.Matrix, eventBus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		matrix:   matrix,
		eventBus: eventBus,
		logger:   logger,
	}
}

// ListLeads returns leads whose stage is in filter.StageIDs, in stored
// order. When view access is denied the result is an empty sequence,
// not an error: list pages for unauthorized roles simply render empty.
func (s *Service) ListLeads(ctx context.Context, actor *auth.User, filter ListLeadsFilter) ([]*Lead, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionView) {
		s.logger.Warn("lead list denied", "user_id", actor.ID, "role", actor.Role)
		recordPermissionDenial(rbac.ActionView)
		return []*Lead{}, nil
	}

	filter.Normalize()
	leads, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list leads", "error", err, "user_id", actor.ID)
		return nil, err
	}

	return leads, nil
}

func (s *Service) GetLead(ctx context.Context, actor *auth.User, id int64) (*Lead, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionView) {
		recordPermissionDenial(rbac.ActionView)
		return nil, internal.ErrPermissionDenied
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get lead", "error", err, "lead_id", id)
		return nil, internal.ErrLeadNotFound
	}

	return lead, nil
}

func (s *Service) CreateLead(ctx context.Context, actor *auth.User, dto CreateLeadDTO) (*Lead, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionCreate) {
		s.logger.Warn("lead create denied", "user_id", actor.ID, "role", actor.Role)
		recordPermissionDenial(rbac.ActionCreate)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	lead := NewLead(actor.ID, dto)
	if err := s.repo.Create(ctx, lead); err != nil {
		s.logger.Error("failed to create lead", "error", err, "user_id", actor.ID)
		return nil, err
	}

	leadsCreated.Inc()
	s.eventBus.Publish(ctx, events.NewLeadCreatedEvent(lead.ID, lead.Company, lead.StageID, actor.ID))

	s.logger.Info("lead created",
		"lead_id", lead.ID,
		"company", lead.Company,
		"stage_id", lead.StageID,
		"user_id", actor.ID)

	return lead, nil
}

func (s *Service) UpdateLead(ctx context.Context, actor *auth.User, id int64, dto UpdateLeadDTO) (*Lead, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionEdit) {
		s.logger.Warn("lead update denied", "user_id", actor.ID, "role", actor.Role, "lead_id", id)
		recordPermissionDenial(rbac.ActionEdit)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrLeadNotFound
	}

	applyUpdate(lead, dto)
	if err := s.repo.Update(ctx, lead); err != nil {
		s.logger.Error("failed to update lead", "error", err, "lead_id", id)
		return nil, err
	}

	return lead, nil
}

// AdvanceStage moves a lead to any existing stage. The pipeline is
// free-form: moves may skip forward or revert, only existence of the
// target stage is checked.
func (s *Service) AdvanceStage(ctx context.Context, actor *auth.User, id int64, dto AdvanceStageDTO) (*Lead, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionEdit) {
		s.logger.Warn("stage change denied", "user_id", actor.ID, "role", actor.Role, "lead_id", id)
		recordPermissionDenial(rbac.ActionEdit)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.ErrStageNotFound
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrLeadNotFound
	}

	fromStageID := lead.StageID
	lead.MoveToStage(dto.StageID)
	lead.StageStatusID = dto.StageStatusID

	if err := s.repo.Update(ctx, lead); err != nil {
		s.logger.Error("failed to move lead", "error", err, "lead_id", id, "stage_id", dto.StageID)
		return nil, err
	}

	recordStageTransition(fromStageID, dto.StageID)
	s.eventBus.Publish(ctx, events.NewLeadStageChangedEvent(lead.ID, fromStageID, dto.StageID, actor.ID))

	s.logger.Info("lead stage changed",
		"lead_id", lead.ID,
		"from_stage_id", fromStageID,
		"to_stage_id", dto.StageID,
		"user_id", actor.ID)

	return lead, nil
}

func (s *Service) AssignLead(ctx context.Context, actor *auth.User, id int64, dto AssignLeadDTO) (*Lead, error) {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionAssign) {
		s.logger.Warn("lead assignment denied", "user_id", actor.ID, "role", actor.Role, "lead_id", id)
		recordPermissionDenial(rbac.ActionAssign)
		return nil, internal.ErrPermissionDenied
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrLeadNotFound
	}

	lead.AssignTo(dto.AssignedUserID)
	if err := s.repo.Update(ctx, lead); err != nil {
		s.logger.Error("failed to assign lead", "error", err, "lead_id", id)
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewLeadAssignedEvent(lead.ID, dto.AssignedUserID, actor.ID))

	return lead, nil
}

func (s *Service) DeleteLead(ctx context.Context, actor *auth.User, id int64) error {
	role := rbac.ResolveRole(actor.Role)
	if !s.matrix.Can(role, rbac.ResourceLeads, rbac.ActionDelete) {
		s.logger.Warn("lead delete denied", "user_id", actor.ID, "role", actor.Role, "lead_id", id)
		recordPermissionDenial(rbac.ActionDelete)
		return internal.ErrPermissionDenied
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return internal.ErrLeadNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete lead", "error", err, "lead_id", id)
		return err
	}

	s.logger.Info("lead deleted", "lead_id", id, "user_id", actor.ID)
	return nil
}

func applyUpdate(lead *Lead, dto UpdateLeadDTO) {
	if dto.Company != nil {
		lead.Company = *dto.Company
	}
	if dto.ContactName != nil {
		lead.ContactName = *dto.ContactName
	}
	if dto.Email != nil {
		lead.Email = *dto.Email
	}
	if dto.Phone != nil {
		lead.Phone = *dto.Phone
	}
	if dto.Source != nil {
		lead.Source = *dto.Source
	}
	if dto.Notes != nil {
		lead.Notes = *dto.Notes
	}
	if dto.AccountID != nil {
		lead.AccountID = dto.AccountID
	}
}
