package usecase

import (
	"context"
	"strings"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"
)

// bulkChunkSize is how many flights are written per SaveBundles call
const bulkChunkSize = 200

// SepehrUpdater refreshes flights from one bulk charter call per cycle and
// joins the result to the stored routes in memory
type SepehrUpdater struct {
	flightPipeline
	routeRepo repository.RouteRepository
	now       func() time.Time
}

// NewSepehrUpdater creates a new Sepehr flight updater. queue may be nil.
func NewSepehrUpdater(
	adapter repository.ProviderAdapter,
	routeRepo repository.RouteRepository,
	flightRepo repository.FlightRepository,
	queue repository.TaskQueue,
	zones *utils.ZoneResolver,
	m *metrics.Metrics,
	log logger.Logger,
) *SepehrUpdater {
	return &SepehrUpdater{
		flightPipeline: flightPipeline{
			adapter:    adapter,
			flightRepo: flightRepo,
			queue:      queue,
			zones:      zones,
			metrics:    m,
			logger:     log.With("provider", adapter.Name(), "component", "updater"),
		},
		routeRepo: routeRepo,
		now:       time.Now,
	}
}

// UpdateByPeriod fetches the whole period with one schedule call
func (u *SepehrUpdater) UpdateByPeriod(ctx context.Context, iface *entity.Interface, period int) entity.UpdateStats {
	start := time.Now()
	stats := entity.UpdateStats{Provider: u.adapter.Name(), InterfaceID: iface.ID, Period: period}
	defer u.observe("update_period", start, &stats)

	dates, err := utils.PeriodDates(period, u.now(), u.zones.Fallback())
	if err != nil {
		stats.Errors++
		u.logger.Error("Invalid period", "period", period, "error", err)
		return stats
	}

	u.logger.Info("Updating flights by period", "interface_id", iface.ID, "period", period)
	u.fetchAndStore(ctx, iface, dates[0], dates[len(dates)-1], &stats)
	return stats
}

// UpdateDue re-fetches the date span of all due flights in one call and
// rescores them
func (u *SepehrUpdater) UpdateDue(ctx context.Context, iface *entity.Interface, now time.Time) entity.UpdateStats {
	start := time.Now()
	stats := entity.UpdateStats{Provider: u.adapter.Name(), InterfaceID: iface.ID}
	defer u.observe("update_due", start, &stats)

	due, err := u.flightRepo.FindDue(ctx, iface.ID, now)
	if err != nil {
		stats.Errors++
		u.logger.Error("Failed to load due flights", "interface_id", iface.ID, "error", err)
		return stats
	}
	if len(due) == 0 {
		return stats
	}

	loc := u.zones.Fallback()
	first, last := due[0].Flight.DepartureAt, due[0].Flight.DepartureAt
	for _, ref := range due[1:] {
		if ref.Flight.DepartureAt.Before(first) {
			first = ref.Flight.DepartureAt
		}
		if ref.Flight.DepartureAt.After(last) {
			last = ref.Flight.DepartureAt
		}
	}

	fetched, ok := u.fetchAndStore(ctx, iface, utils.StartOfDay(first, loc), utils.StartOfDay(last, loc), &stats)
	u.rescore(ctx, due, fetched, func(*entity.FlightRef) bool { return ok }, now, &stats)
	return stats
}

// fetchAndStore runs one bulk call and persists the flights that belong to
// a stored route. It reports whether the call succeeded.
func (u *SepehrUpdater) fetchAndStore(ctx context.Context, iface *entity.Interface, from, to time.Time, stats *entity.UpdateStats) (map[flightKey]*entity.FlightBundle, bool) {
	routes, err := u.routeRepo.FindByInterface(ctx, iface.ID)
	if err != nil {
		stats.Errors++
		u.logger.Error("Failed to load routes", "interface_id", iface.ID, "error", err)
		return nil, false
	}
	stats.Routes = len(routes)
	stats.Tasks++

	flights, err := u.adapter.GetSchedule(ctx, iface, from, to)
	if err != nil {
		stats.Errors++
		return nil, false
	}

	byKey := make(map[entity.RouteKey]*entity.Route, len(routes))
	for _, r := range routes {
		byKey[routeKey(r.Iata, r.Origin, r.Destination)] = r
	}

	grouped := make(map[uint][]entity.RawFlight)
	unmatched := 0
	for _, f := range flights {
		route, ok := byKey[routeKey(f.Airline, f.Origin, f.Destination)]
		if !ok {
			unmatched++
			continue
		}
		grouped[route.ID] = append(grouped[route.ID], f)
	}
	if unmatched > 0 {
		u.logger.Debug("Flights without a stored route", "interface_id", iface.ID, "count", unmatched)
	}

	var bundles []entity.FlightBundle
	for _, r := range routes {
		if fl, ok := grouped[r.ID]; ok {
			bundles = append(bundles, u.normalize(r, fl, stats)...)
		}
	}

	index := routeIndex(routes)
	for start := 0; start < len(bundles); start += bulkChunkSize {
		u.persist(ctx, iface, index, bundles[start:min(start+bulkChunkSize, len(bundles))], stats)
	}
	return bundleIndex(bundles), true
}

func routeKey(iata, origin, destination string) entity.RouteKey {
	return entity.RouteKey{
		Iata:        strings.ToUpper(iata),
		Origin:      strings.ToUpper(origin),
		Destination: strings.ToUpper(destination),
	}
}
