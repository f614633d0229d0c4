package usecase

import (
	"context"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
)

// FlightUpdater refreshes the stored flights of one provider interface
type FlightUpdater interface {
	// UpdateByPeriod fetches every route and date of a polling period
	UpdateByPeriod(ctx context.Context, iface *entity.Interface, period int) entity.UpdateStats

	// UpdateDue re-fetches only flights whose next check time has passed
	UpdateDue(ctx context.Context, iface *entity.Interface, now time.Time) entity.UpdateStats
}

// ProviderHandler bundles the collaborators registered for one provider
type ProviderHandler struct {
	Adapter  repository.ProviderAdapter
	Analyzer repository.RouteAnalyzer
	Updater  FlightUpdater
}

// Provider returns the provider name the handler serves
func (h *ProviderHandler) Provider() string {
	return h.Adapter.Name()
}

// ProviderRouter resolves provider names to their handlers
type ProviderRouter interface {
	// Register adds a handler under its provider name
	Register(handler *ProviderHandler)

	// Get returns the handler of a provider or entity.ErrUnknownProvider
	Get(provider string) (*ProviderHandler, error)

	// Providers lists registered provider names in registration order
	Providers() []string
}
