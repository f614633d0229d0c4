package repository

import (
	"context"
	"time"

	"flightsync-service/internal/domain/entity"
)

// FlightRepository persists flights and their children
type FlightRepository interface {
	SaveBundles(ctx context.Context, bundles []entity.FlightBundle) (entity.SaveResult, error)
	FindUpcoming(ctx context.Context, interfaceID uint, from time.Time) ([]*entity.FlightRef, error)
	FindDue(ctx context.Context, interfaceID uint, now time.Time) ([]*entity.FlightRef, error)
	ClassesByFlight(ctx context.Context, flightIDs []uint) (map[uint][]*entity.FlightClass, error)
	UpdateStatuses(ctx context.Context, statuses []entity.FlightStatus) (int, error)
	MarkMissing(ctx context.Context, flightIDs []uint) error
	ResetMissing(ctx context.Context, flightIDs []uint) error
	DeleteFlights(ctx context.Context, flightIDs []uint) (int64, error)
	DeleteDepartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ClassesMissingFare(ctx context.Context, providers []string, from time.Time, limit int) ([]*entity.ClassRef, error)
	SaveFareDetail(ctx context.Context, classID uint, fare *entity.RawFare, fetchedAt time.Time) error
}
