package repository

import (
	"context"

	"flightsync-service/internal/domain/entity"
)

// RouteRepository persists the route catalog
type RouteRepository interface {
	FindByInterface(ctx context.Context, interfaceID uint) ([]*entity.Route, error)
	// Reconcile deletes stored routes of the interface that are absent from
	// routes and upserts the rest by natural key
	Reconcile(ctx context.Context, interfaceID uint, routes []*entity.Route) (deleted int, err error)
}
