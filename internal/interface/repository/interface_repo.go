package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormInterfaceRepository implements the InterfaceRepository interface
type GormInterfaceRepository struct {
	db *gorm.DB
}

// NewGormInterfaceRepository creates a new GORM provider interface repository
func NewGormInterfaceRepository(db *gorm.DB) repository.InterfaceRepository {
	return &GormInterfaceRepository{
		db: db,
	}
}

// ProviderInterfaces GORM model for database mapping
type ProviderInterfaces struct {
	ID           uint   `gorm:"primaryKey"`
	Provider     string `gorm:"column:provider;size:32;index"`
	Code         string `gorm:"column:code;size:8"`
	Name         string `gorm:"column:name"`
	BaseURL      string `gorm:"column:base_url"`
	Username     string `gorm:"column:username"`
	Password     string `gorm:"column:password"`
	ClientID     string `gorm:"column:client_id"`
	ClientSecret string `gorm:"column:client_secret"`
	TokenURL     string `gorm:"column:token_url"`
	IsActive     bool   `gorm:"column:is_active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the default table name
func (ProviderInterfaces) TableName() string {
	return "provider_interfaces"
}

// ByProviderAndCode finds the active interface of a provider. An empty code
// selects the first active interface of the provider.
func (r *GormInterfaceRepository) ByProviderAndCode(ctx context.Context, provider, code string) (*entity.Interface, error) {
	query := r.db.WithContext(ctx).
		Where("provider = ? AND is_active = ?", strings.ToLower(provider), true)
	if code != "" {
		query = query.Where("UPPER(code) = ?", strings.ToUpper(code))
	}

	var model ProviderInterfaces
	if err := query.Order("id").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrInterfaceNotFound
		}
		return nil, err
	}
	return model.toEntity(), nil
}

// AllActiveForProvider lists every active interface of a provider
func (r *GormInterfaceRepository) AllActiveForProvider(ctx context.Context, provider string) ([]*entity.Interface, error) {
	var models []ProviderInterfaces
	err := r.db.WithContext(ctx).
		Where("provider = ? AND is_active = ?", strings.ToLower(provider), true).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*entity.Interface, len(models))
	for i := range models {
		out[i] = models[i].toEntity()
	}
	return out, nil
}

// ByID finds an interface by id regardless of its active flag
func (r *GormInterfaceRepository) ByID(ctx context.Context, id uint) (*entity.Interface, error) {
	var model ProviderInterfaces
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrInterfaceNotFound
		}
		return nil, err
	}
	return model.toEntity(), nil
}

// Convert GORM model to domain entity
func (m *ProviderInterfaces) toEntity() *entity.Interface {
	return &entity.Interface{
		ID:           m.ID,
		Provider:     m.Provider,
		Code:         m.Code,
		Name:         m.Name,
		BaseURL:      m.BaseURL,
		Username:     m.Username,
		Password:     m.Password,
		ClientID:     m.ClientID,
		ClientSecret: m.ClientSecret,
		TokenURL:     m.TokenURL,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
