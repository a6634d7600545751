package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wirebird/crm/internal/account"
)

type accountModel struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"not null;uniqueIndex"`
	Domain    string    `gorm:"column:domain"`
	Industry  string    `gorm:"column:industry"`
	Size      string    `gorm:"column:size"`
	Website   string    `gorm:"column:website"`
	City      string    `gorm:"column:city"`
	Country   string    `gorm:"column:country"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;default:now()"`
}

func (accountModel) TableName() string {
	return "accounts"
}

// AccountRepository implements account.RepositoryAPI using GORM.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) account.RepositoryAPI {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetAll(ctx context.Context, limit, offset int) ([]*account.Account, error) {
	var models []*accountModel
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	accounts := make([]*account.Account, 0, len(models))
	for _, m := range models {
		accounts = append(accounts, fromModel(m))
	}
	return accounts, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	var model accountModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return fromModel(&model), nil
}

func (r *AccountRepository) GetByName(ctx context.Context, name string) (*account.Account, error) {
	var model accountModel
	err := r.db.WithContext(ctx).Where("lower(name) = lower(?)", name).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return fromModel(&model), nil
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	model := toModel(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	a.ID = model.ID
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	a.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(toModel(a)).Error
}

func toModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:        a.ID,
		Name:      a.Name,
		Domain:    a.Domain,
		Industry:  a.Industry,
		Size:      a.Size,
		Website:   a.Website,
		City:      a.City,
		Country:   a.Country,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromModel(m *accountModel) *account.Account {
	return &account.Account{
		ID:        m.ID,
		Name:      m.Name,
		Domain:    m.Domain,
		Industry:  m.Industry,
		Size:      m.Size,
		Website:   m.Website,
		City:      m.City,
		Country:   m.Country,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
