package lead

import (
	"errors"

	"github.com/wirebird/crm/internal/stage"
)

// CreateLeadDTO is the request payload for creating a lead.
type CreateLeadDTO struct {
	AccountID      *int64 `json:"account_id,omitempty"`
	Company        string `json:"company" validate:"required"`
	ContactName    string `json:"contact_name" validate:"required"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Source         string `json:"source,omitempty"`
	Notes          string `json:"notes,omitempty"`
	StageID        int    `json:"stage_id"`
	AssignedUserID *int64 `json:"assigned_user_id,omitempty"`
}

func (dto *CreateLeadDTO) Validate() error {
	if dto.Company == "" {
		return errors.New("company is required")
	}
	if dto.ContactName == "" {
		return errors.New("contact name is required")
	}
	if dto.StageID == 0 {
		dto.StageID = stage.Sourcing
	}
	if !stage.Exists(dto.StageID) {
		return ErrInvalidStage
	}
	return nil
}

// UpdateLeadDTO carries partial edits; nil fields are left untouched.
type UpdateLeadDTO struct {
	Company     *string `json:"company,omitempty"`
	ContactName *string `json:"contact_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Source      *string `json:"source,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	AccountID   *int64  `json:"account_id,omitempty"`
}

func (dto UpdateLeadDTO) Validate() error {
	if dto.Company != nil && *dto.Company == "" {
		return errors.New("company cannot be empty")
	}
	if dto.ContactName != nil && *dto.ContactName == "" {
		return errors.New("contact name cannot be empty")
	}
	return nil
}

// AdvanceStageDTO moves a lead to another pipeline stage.
type AdvanceStageDTO struct {
	StageID       int  `json:"stage_id" validate:"required"`
	StageStatusID *int `json:"stage_status_id,omitempty"`
}

func (dto AdvanceStageDTO) Validate() error {
	if !stage.Exists(dto.StageID) {
		return ErrInvalidStage
	}
	return nil
}

// AssignLeadDTO reassigns a lead to another user.
type AssignLeadDTO struct {
	AssignedUserID int64 `json:"assigned_user_id" validate:"required"`
}

func (dto AssignLeadDTO) Validate() error {
	if dto.AssignedUserID <= 0 {
		return errors.New("assigned user id is required")
	}
	return nil
}

// ListLeadsFilter narrows a lead listing. An empty StageIDs slice
// means all stages.
type ListLeadsFilter struct {
	StageIDs       []int
	AccountID      *int64
	AssignedUserID *int64
	Limit          int
	Offset         int
}

func (f *ListLeadsFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
