package utils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
)

// ZoneResolver maps airport codes to time zones through the timezone table,
// caching results and falling back to a default zone
type ZoneResolver struct {
	timezoneRepo repository.TimezoneRepository
	fallback     *time.Location
	logger       logger.Logger

	mu    sync.RWMutex
	cache map[string]*time.Location
}

// NewZoneResolver creates a new zone resolver. timezoneRepo may be nil, in
// which case every airport resolves to fallback.
func NewZoneResolver(timezoneRepo repository.TimezoneRepository, fallback *time.Location, logger logger.Logger) *ZoneResolver {
	if fallback == nil {
		fallback = time.UTC
	}
	return &ZoneResolver{
		timezoneRepo: timezoneRepo,
		fallback:     fallback,
		logger:       logger,
		cache:        make(map[string]*time.Location),
	}
}

// Fallback returns the default zone
func (z *ZoneResolver) Fallback() *time.Location {
	return z.fallback
}

// Location returns the time zone of an airport
func (z *ZoneResolver) Location(ctx context.Context, airportCode string) *time.Location {
	code := strings.ToUpper(strings.TrimSpace(airportCode))
	if code == "" || z.timezoneRepo == nil {
		return z.fallback
	}

	z.mu.RLock()
	loc, ok := z.cache[code]
	z.mu.RUnlock()
	if ok {
		return loc
	}

	loc = z.fallback
	tz, err := z.timezoneRepo.GetByAirportCode(ctx, code)
	switch {
	case errors.Is(err, entity.ErrTimezoneNotFound):
	case err != nil:
		// Transient failures are retried on the next lookup
		z.logger.Warn("Failed to look up airport timezone", "airport", code, "error", err)
		return z.fallback
	case tz.TzName != "":
		if l, err := time.LoadLocation(tz.TzName); err == nil {
			loc = l
		} else {
			z.logger.Warn("Unknown timezone name", "airport", code, "tzname", tz.TzName)
		}
	}

	z.mu.Lock()
	z.cache[code] = loc
	z.mu.Unlock()
	return loc
}
