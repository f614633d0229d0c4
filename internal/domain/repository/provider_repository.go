package repository

import (
	"context"
	"time"

	"flightsync-service/internal/domain/entity"
)

// ProviderAdapter talks to one upstream provider and normalizes its wire
// format. Failures are logged by the adapter and returned as errors; callers
// treat them as "no data this cycle".
type ProviderAdapter interface {
	Name() string
	Capabilities() entity.Capabilities
	GetSchedule(ctx context.Context, iface *entity.Interface, from, to time.Time) ([]entity.RawFlight, error)
	GetAvailability(ctx context.Context, iface *entity.Interface, origin, destination string, date time.Time) ([]entity.RawFlight, error)
	GetFareDetail(ctx context.Context, iface *entity.Interface, req entity.FareRequest) (*entity.RawFare, error)
	ParseAvailableSeats(code, classPrefix string) int
	DetermineStatus(code, classPrefix string) string
}

// RouteAnalyzer folds a raw flight list into route records
type RouteAnalyzer interface {
	Analyze(flights []entity.RawFlight) map[entity.RouteKey]*entity.RouteRecord
}
