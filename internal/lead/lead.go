package lead

import (
	"errors"
	"time"
)

// Lead is a prospective deal attached to one account and positioned
// at exactly one pipeline stage at any moment.
type Lead struct {
	ID             int64      `json:"id"`
	AccountID      *int64     `json:"account_id,omitempty"`
	Company        string     `json:"company"`
	ContactName    string     `json:"contact_name"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Source         string     `json:"source,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	StageID        int        `json:"stage_id"`
	StageStatusID  *int       `json:"stage_status_id,omitempty"`
	AssignedUserID *int64     `json:"assigned_user_id,omitempty"`
	CreatedByID    int64      `json:"created_by_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

func (l *Lead) IsAssigned() bool {
	return l.AssignedUserID != nil && *l.AssignedUserID != 0
}

// MoveToStage repositions the lead. Transitions are free-form: the
// pipeline allows jumping or reverting between any two stages.
func (l *Lead) MoveToStage(stageID int) {
	l.StageID = stageID
	l.StageStatusID = nil
	l.UpdatedAt = time.Now()
}

func (l *Lead) AssignTo(userID int64) {
	l.AssignedUserID = &userID
	l.UpdatedAt = time.Now()
}

var (
	ErrInvalidStage = errors.New("stage does not exist")
	ErrNotFound     = errors.New("lead not found")
)

func NewLead(createdByID int64, dto CreateLeadDTO) *Lead {
	now := time.Now()
	return &Lead{
		AccountID:      dto.AccountID,
		Company:        dto.Company,
		ContactName:    dto.ContactName,
		Email:          dto.Email,
		Phone:          dto.Phone,
		Source:         dto.Source,
		Notes:          dto.Notes,
		StageID:        dto.StageID,
		AssignedUserID: dto.AssignedUserID,
		CreatedByID:    createdByID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
