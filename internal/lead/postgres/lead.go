package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wirebird/crm/internal/lead"
)

// leadModel is the persistence shape for leads.
type leadModel struct {
	ID             int64      `gorm:"primaryKey"`
	AccountID      *int64     `gorm:"column:account_id"`
	Company        string     `gorm:"not null"`
	ContactName    string     `gorm:"column:contact_name;not null"`
	Email          string     `gorm:"column:email"`
	Phone          string     `gorm:"column:phone"`
	Source         string     `gorm:"column:source"`
	Notes          string     `gorm:"column:notes"`
	StageID        int        `gorm:"column:stage_id;not null"`
	StageStatusID  *int       `gorm:"column:stage_status_id"`
	AssignedUserID *int64     `gorm:"column:assigned_user_id"`
	CreatedByID    int64      `gorm:"column:created_by_id;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;default:now()"`
	DeletedAt      *time.Time `gorm:"column:deleted_at"`
}

func (leadModel) TableName() string {
	return "leads"
}

// LeadRepository implements lead.Repository using GORM.
type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) lead.Repository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(ctx context.Context, l *lead.Lead) error {
	model := toModel(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	l.ID = model.ID
	return nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*lead.Lead, error) {
	var model leadModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, lead.ErrNotFound
		}
		return nil, err
	}
	return fromModel(&model), nil
}

// List returns leads in insertion order. Every returned lead has a
// stage id from filter.StageIDs when the filter is non-empty.
func (r *LeadRepository) List(ctx context.Context, filter lead.ListLeadsFilter) ([]*lead.Lead, error) {
	query := r.db.WithContext(ctx).Where("deleted_at IS NULL")

	if len(filter.StageIDs) > 0 {
		query = query.Where("stage_id IN ?", filter.StageIDs)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.AssignedUserID != nil {
		query = query.Where("assigned_user_id = ?", *filter.AssignedUserID)
	}

	var models []*leadModel
	err := query.
		Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	leads := make([]*lead.Lead, 0, len(models))
	for _, m := range models {
		leads = append(leads, fromModel(m))
	}
	return leads, nil
}

func (r *LeadRepository) Update(ctx context.Context, l *lead.Lead) error {
	l.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(toModel(l)).Error
}

// Delete soft-deletes the lead so dedupe tooling can still inspect it.
func (r *LeadRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&leadModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"updated_at": time.Now(),
		}).Error
}

func toModel(l *lead.Lead) *leadModel {
	return &leadModel{
		ID:             l.ID,
		AccountID:      l.AccountID,
		Company:        l.Company,
		ContactName:    l.ContactName,
		Email:          l.Email,
		Phone:          l.Phone,
		Source:         l.Source,
		Notes:          l.Notes,
		StageID:        l.StageID,
		StageStatusID:  l.StageStatusID,
		AssignedUserID: l.AssignedUserID,
		CreatedByID:    l.CreatedByID,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
		DeletedAt:      l.DeletedAt,
	}
}

func fromModel(m *leadModel) *lead.Lead {
	return &lead.Lead{
		ID:             m.ID,
		AccountID:      m.AccountID,
		Company:        m.Company,
		ContactName:    m.ContactName,
		Email:          m.Email,
		Phone:          m.Phone,
		Source:         m.Source,
		Notes:          m.Notes,
		StageID:        m.StageID,
		StageStatusID:  m.StageStatusID,
		AssignedUserID: m.AssignedUserID,
		CreatedByID:    m.CreatedByID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      m.DeletedAt,
	}
}
