package repository

import (
	"context"

	"flightsync-service/internal/domain/entity"
)

// InterfaceRepository is the read-only directory of provider interfaces
type InterfaceRepository interface {
	ByProviderAndCode(ctx context.Context, provider, code string) (*entity.Interface, error)
	AllActiveForProvider(ctx context.Context, provider string) ([]*entity.Interface, error)
	ByID(ctx context.Context, id uint) (*entity.Interface, error)
}
