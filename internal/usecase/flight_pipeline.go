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

// flightKey is the natural key of a flight
type flightKey struct {
	RouteID      uint
	FlightNumber string
	Departure    int64
}

func keyOf(f *entity.Flight) flightKey {
	return flightKey{RouteID: f.RouteID, FlightNumber: f.FlightNumber, Departure: f.DepartureAt.Unix()}
}

// groupKey identifies one (route, local date) fetch
type groupKey struct {
	RouteID uint
	Date    string
}

// classSummary holds the per-flight aggregates derived from its classes
type classSummary struct {
	IsOpen         bool
	OpenClassCount int
	MinPrice       int64
	MinCapacity    int
}

// summarize derives the open state of a flight from its classes. Minimums
// are taken over open classes only.
func summarize(classes []entity.FlightClass) classSummary {
	var s classSummary
	for i := range classes {
		c := &classes[i]
		if !c.IsOpen() {
			continue
		}
		s.OpenClassCount++
		if s.MinPrice == 0 || (c.AdultPrice > 0 && c.AdultPrice < s.MinPrice) {
			s.MinPrice = c.AdultPrice
		}
		if s.MinCapacity == 0 || c.AvailableSeats < s.MinCapacity {
			s.MinCapacity = c.AvailableSeats
		}
	}
	s.IsOpen = s.OpenClassCount > 0
	return s
}

// matchesRoute reports whether a raw flight belongs to route
func matchesRoute(route *entity.Route, f *entity.RawFlight) bool {
	if !strings.EqualFold(route.Origin, f.Origin) || !strings.EqualFold(route.Destination, f.Destination) {
		return false
	}
	return route.Iata == "" || f.Airline == "" || strings.EqualFold(route.Iata, f.Airline)
}

// buildBundle normalizes a raw flight of route. Classes without a price are
// dropped and counted.
func buildBundle(route *entity.Route, f *entity.RawFlight) (entity.FlightBundle, int) {
	b := entity.FlightBundle{
		Flight: entity.Flight{
			RouteID:      route.ID,
			FlightNumber: strings.TrimSpace(f.FlightNumber),
			DepartureAt:  f.DepartureAt.UTC(),
			Aircraft:     f.Aircraft,
		},
		Detail: entity.FlightDetail{
			ArrivalAt:    f.ArrivalAt,
			Transit:      f.Transit,
			AircraftName: f.AircraftName,
			AirlineName:  f.AirlineName,
		},
	}

	dropped := 0
	classes := make([]entity.FlightClass, 0, len(f.Classes))
	for _, rc := range f.Classes {
		if rc.Code == "" || rc.AdultPrice <= 0 {
			dropped++
			continue
		}
		class := entity.FlightClass{
			ClassCode:      rc.Code,
			CapacityCode:   rc.CapacityCode,
			AdultPrice:     rc.AdultPrice,
			ChildPrice:     rc.ChildPrice,
			InfantPrice:    rc.InfantPrice,
			AvailableSeats: rc.AvailableSeats,
			Status:         rc.Status,
		}
		classes = append(classes, class)
		b.Classes = append(b.Classes, entity.ClassBundle{Class: class, Fare: rc.Fare})
	}

	s := summarize(classes)
	b.Flight.IsOpen = s.IsOpen
	b.Flight.OpenClassCount = s.OpenClassCount
	b.Flight.MinPrice = s.MinPrice
	b.Flight.MinCapacity = s.MinCapacity
	return b, dropped
}

// flightPipeline is the normalize, persist and fan-out stage shared by the
// provider updaters
type flightPipeline struct {
	adapter    repository.ProviderAdapter
	flightRepo repository.FlightRepository
	queue      repository.TaskQueue
	zones      *utils.ZoneResolver
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// normalize turns raw flights of route into bundles and counts what it read
func (p *flightPipeline) normalize(route *entity.Route, flights []entity.RawFlight, stats *entity.UpdateStats) []entity.FlightBundle {
	bundles := make([]entity.FlightBundle, 0, len(flights))
	for i := range flights {
		f := &flights[i]
		if !matchesRoute(route, f) || f.FlightNumber == "" || f.DepartureAt.IsZero() {
			continue
		}
		b, dropped := buildBundle(route, f)
		stats.FlightsFetched++
		stats.ClassesDropped += dropped
		bundles = append(bundles, b)
	}
	return bundles
}

// persist writes bundles and enqueues fare tasks for new classes. A failed
// write is logged and counted; it never aborts the caller's batch.
func (p *flightPipeline) persist(ctx context.Context, iface *entity.Interface, routes map[uint]*entity.Route, bundles []entity.FlightBundle, stats *entity.UpdateStats) {
	if len(bundles) == 0 {
		return
	}

	result, err := p.flightRepo.SaveBundles(ctx, bundles)
	if err != nil {
		stats.Errors++
		p.logger.Error("Failed to persist flights",
			"interface_id", iface.ID,
			"flights", len(bundles),
			"first_flight", bundles[0].Flight.FlightNumber,
			"error", err)
		return
	}

	stats.FlightsNew += result.FlightsNew
	stats.FlightsUpdated += result.FlightsUpdated
	stats.ClassesNew += result.ClassesNew
	stats.ClassesUpdated += result.ClassesUpdated

	provider := p.adapter.Name()
	p.metrics.FlightsWritten.WithLabelValues(provider, "new").Add(float64(result.FlightsNew))
	p.metrics.FlightsWritten.WithLabelValues(provider, "updated").Add(float64(result.FlightsUpdated))
	p.metrics.ClassesWritten.WithLabelValues(provider, "new").Add(float64(result.ClassesNew))
	p.metrics.ClassesWritten.WithLabelValues(provider, "updated").Add(float64(result.ClassesUpdated))

	stats.FareTasksQueued += p.fanOut(ctx, iface, routes, result.NewClasses, stats)
}

// fanOut enqueues a fare-detail task per new class when the provider serves
// fare detail separately
func (p *flightPipeline) fanOut(ctx context.Context, iface *entity.Interface, routes map[uint]*entity.Route, classes []entity.NewClass, stats *entity.UpdateStats) int {
	if p.queue == nil || !p.adapter.Capabilities().FareDetail || len(classes) == 0 {
		return 0
	}

	queued := 0
	for _, c := range classes {
		route, ok := routes[c.RouteID]
		if !ok {
			continue
		}
		task := &entity.FareTask{
			Provider:      p.adapter.Name(),
			InterfaceID:   iface.ID,
			FlightClassID: c.ClassID,
			Origin:        route.Origin,
			Destination:   route.Destination,
			ClassCode:     c.ClassCode,
			FlightNumber:  c.FlightNumber,
			DepartureAt:   c.DepartureAt,
		}
		if err := p.queue.Enqueue(ctx, task); err != nil {
			stats.Errors++
			p.logger.Warn("Failed to enqueue fare task",
				"class_id", c.ClassID,
				"flight", c.FlightNumber,
				"error", err)
			continue
		}
		queued++
	}
	p.metrics.FareTasksQueued.WithLabelValues(p.adapter.Name()).Add(float64(queued))
	return queued
}

// rescore recomputes the status of due flights from what was just fetched.
// Flights of groups whose fetch failed keep their schedule and are retried
// next cycle. Flights missing from a successful fetch are closed and
// dropped from the adaptive schedule.
func (p *flightPipeline) rescore(ctx context.Context, due []*entity.FlightRef, fetched map[flightKey]*entity.FlightBundle, succeeded func(ref *entity.FlightRef) bool, now time.Time, stats *entity.UpdateStats) {
	loc := p.zones.Fallback()
	statuses := make([]entity.FlightStatus, 0, len(due))
	for _, ref := range due {
		if !succeeded(ref) {
			continue
		}
		status := entity.FlightStatus{
			RouteID:         ref.Flight.RouteID,
			FlightNumber:    ref.Flight.FlightNumber,
			DepartureAt:     ref.Flight.DepartureAt,
			StatusCheckedAt: now.UTC(),
		}
		if b, ok := fetched[keyOf(&ref.Flight)]; ok {
			status.IsOpen = b.Flight.IsOpen
			status.OpenClassCount = b.Flight.OpenClassCount
			status.MinPrice = b.Flight.MinPrice
			status.MinCapacity = b.Flight.MinCapacity
			status.FlightScore, status.NextCheckAt = utils.ScoreFlight(
				status.OpenClassCount, status.MinCapacity, status.MinPrice, status.DepartureAt, now, loc)
		}
		statuses = append(statuses, status)
	}
	if len(statuses) == 0 {
		return
	}

	if _, err := p.flightRepo.UpdateStatuses(ctx, statuses); err != nil {
		stats.Errors++
		p.logger.Error("Failed to rescore due flights", "flights", len(statuses), "error", err)
	}
}

// routeIndex maps routes by id
func routeIndex(routes []*entity.Route) map[uint]*entity.Route {
	index := make(map[uint]*entity.Route, len(routes))
	for _, r := range routes {
		index[r.ID] = r
	}
	return index
}

// bundleIndex maps bundles by natural key
func bundleIndex(bundles []entity.FlightBundle) map[flightKey]*entity.FlightBundle {
	index := make(map[flightKey]*entity.FlightBundle, len(bundles))
	for i := range bundles {
		index[keyOf(&bundles[i].Flight)] = &bundles[i]
	}
	return index
}

// localDate formats the calendar date of t in the origin's zone
func (p *flightPipeline) localDate(ctx context.Context, origin string, t time.Time) (string, time.Time) {
	day := utils.StartOfDay(t, p.zones.Location(ctx, origin))
	return day.Format(utils.DateLayout), day
}

// observe records the duration of a top-level operation
func (p *flightPipeline) observe(operation string, start time.Time, stats *entity.UpdateStats) {
	stats.Duration = time.Since(start)
	p.metrics.OperationDuration.WithLabelValues(operation, p.adapter.Name()).Observe(stats.Duration.Seconds())
	if stats.Errors > 0 {
		p.metrics.OperationErrors.WithLabelValues(operation).Add(float64(stats.Errors))
	}
}
