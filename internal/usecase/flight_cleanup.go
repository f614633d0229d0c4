package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// CleanupService removes departed flights and detects flights that vanished
// upstream
type CleanupService struct {
	router     ProviderRouter
	flightRepo repository.FlightRepository
	zones      *utils.ZoneResolver
	poolSize   int
	metrics    *metrics.Metrics
	logger     logger.Logger
	now        func() time.Time
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(
	router ProviderRouter,
	flightRepo repository.FlightRepository,
	zones *utils.ZoneResolver,
	poolSize int,
	m *metrics.Metrics,
	log logger.Logger,
) *CleanupService {
	if poolSize <= 0 {
		poolSize = 5
	}
	return &CleanupService{
		router:     router,
		flightRepo: flightRepo,
		zones:      zones,
		poolSize:   poolSize,
		metrics:    m,
		logger:     log.With("component", "cleanup"),
		now:        time.Now,
	}
}

// CleanupPastFlights deletes flights that departed before today in the
// provider's local time, children included
func (s *CleanupService) CleanupPastFlights(ctx context.Context) entity.CleanupStats {
	stats := entity.CleanupStats{Cutoff: utils.StartOfDay(s.now(), s.zones.Fallback())}

	deleted, err := s.flightRepo.DeleteDepartedBefore(ctx, stats.Cutoff)
	if err != nil {
		stats.Errors++
		s.metrics.OperationErrors.WithLabelValues("cleanup").Inc()
		s.logger.Error("Failed to delete past flights", "cutoff", stats.Cutoff, "error", err)
		return stats
	}
	stats.Deleted = deleted
	s.metrics.FlightsDeleted.WithLabelValues("departed").Add(float64(deleted))
	s.logger.Info("Past flights cleaned up", "cutoff", stats.Cutoff, "deleted", deleted)
	return stats
}

// presenceKey identifies a flight in a provider response
type presenceKey struct {
	Origin       string
	Destination  string
	FlightNumber string
	Departure    int64
}

// DetectMissingFlights re-fetches every (route, date) group of upcoming
// flights. A flight absent from a successful fetch is closed and its missing
// counter raised; one that already reached the threshold is deleted. Flights
// seen again get their counter reset. Groups whose fetch failed are skipped.
func (s *CleanupService) DetectMissingFlights(ctx context.Context, iface *entity.Interface) entity.MissingStats {
	start := time.Now()
	stats := entity.MissingStats{Provider: iface.Provider, InterfaceID: iface.ID}
	defer func() {
		s.metrics.OperationDuration.WithLabelValues("detect_missing", iface.Provider).Observe(time.Since(start).Seconds())
		if stats.Errors > 0 {
			s.metrics.OperationErrors.WithLabelValues("detect_missing").Add(float64(stats.Errors))
		}
	}()

	handler, err := s.router.Get(iface.Provider)
	if err != nil {
		stats.Errors++
		s.logger.Error("No handler for provider", "provider", iface.Provider, "error", err)
		return stats
	}

	refs, err := s.flightRepo.FindUpcoming(ctx, iface.ID, s.now())
	if err != nil {
		stats.Errors++
		s.logger.Error("Failed to load upcoming flights", "interface_id", iface.ID, "error", err)
		return stats
	}
	stats.Checked = len(refs)
	if len(refs) == 0 {
		return stats
	}

	groups := make(map[groupKey][]*entity.FlightRef)
	for _, ref := range refs {
		day := utils.StartOfDay(ref.Flight.DepartureAt, s.zones.Location(ctx, ref.Origin))
		key := groupKey{RouteID: ref.Flight.RouteID, Date: day.Format(utils.DateLayout)}
		groups[key] = append(groups[key], ref)
	}
	stats.Groups = len(groups)

	var present map[presenceKey]bool
	var fetched map[groupKey]bool
	if handler.Adapter.Capabilities().BulkCharter {
		present, fetched = s.fetchBulk(ctx, handler.Adapter, iface, refs, groups)
	} else {
		present, fetched = s.fetchGroups(ctx, handler.Adapter, iface, groups)
	}
	stats.Errors += len(groups) - len(fetched)

	var missing, gone, seen []uint
	for key, group := range groups {
		if !fetched[key] {
			continue
		}
		for _, ref := range group {
			switch {
			case present[refPresence(ref)]:
				if ref.Flight.MissingCount != 0 {
					seen = append(seen, ref.Flight.ID)
				}
			case ref.Flight.MissingCount >= entity.MissingDeleteThreshold:
				gone = append(gone, ref.Flight.ID)
			default:
				missing = append(missing, ref.Flight.ID)
			}
		}
	}

	if len(missing) > 0 {
		if err := s.flightRepo.MarkMissing(ctx, missing); err != nil {
			stats.Errors++
			s.logger.Error("Failed to mark missing flights", "count", len(missing), "error", err)
		} else {
			stats.Missing = len(missing)
		}
	}
	if len(gone) > 0 {
		deleted, err := s.flightRepo.DeleteFlights(ctx, gone)
		if err != nil {
			stats.Errors++
			s.logger.Error("Failed to delete missing flights", "count", len(gone), "error", err)
		} else {
			stats.Deleted = int(deleted)
			s.metrics.FlightsDeleted.WithLabelValues("missing").Add(float64(deleted))
		}
	}
	if len(seen) > 0 {
		if err := s.flightRepo.ResetMissing(ctx, seen); err != nil {
			stats.Errors++
			s.logger.Error("Failed to reset missing counters", "count", len(seen), "error", err)
		} else {
			stats.Reset = len(seen)
		}
	}

	s.logger.Info("Missing flight detection finished",
		"interface_id", iface.ID,
		"checked", stats.Checked,
		"missing", stats.Missing,
		"deleted", stats.Deleted,
		"reset", stats.Reset,
		"errors", stats.Errors)
	return stats
}

// fetchGroups issues one availability call per group with a bounded pool
func (s *CleanupService) fetchGroups(ctx context.Context, adapter repository.ProviderAdapter, iface *entity.Interface, groups map[groupKey][]*entity.FlightRef) (map[presenceKey]bool, map[groupKey]bool) {
	present := make(map[presenceKey]bool)
	fetched := make(map[groupKey]bool)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)
	for key, group := range groups {
		key, ref := key, group[0]
		g.Go(func() error {
			day := utils.StartOfDay(ref.Flight.DepartureAt, s.zones.Location(gctx, ref.Origin))
			flights, err := adapter.GetAvailability(gctx, iface, ref.Origin, ref.Destination, day)
			if err != nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			fetched[key] = true
			for i := range flights {
				present[rawPresence(&flights[i])] = true
			}
			return nil
		})
	}
	_ = g.Wait()
	return present, fetched
}

// fetchBulk covers every group with one schedule call
func (s *CleanupService) fetchBulk(ctx context.Context, adapter repository.ProviderAdapter, iface *entity.Interface, refs []*entity.FlightRef, groups map[groupKey][]*entity.FlightRef) (map[presenceKey]bool, map[groupKey]bool) {
	loc := s.zones.Fallback()
	first, last := refs[0].Flight.DepartureAt, refs[0].Flight.DepartureAt
	for _, ref := range refs[1:] {
		if ref.Flight.DepartureAt.Before(first) {
			first = ref.Flight.DepartureAt
		}
		if ref.Flight.DepartureAt.After(last) {
			last = ref.Flight.DepartureAt
		}
	}

	flights, err := adapter.GetSchedule(ctx, iface, utils.StartOfDay(first, loc), utils.StartOfDay(last, loc))
	if err != nil {
		return nil, map[groupKey]bool{}
	}

	present := make(map[presenceKey]bool, len(flights))
	for i := range flights {
		present[rawPresence(&flights[i])] = true
	}
	fetched := make(map[groupKey]bool, len(groups))
	for key := range groups {
		fetched[key] = true
	}
	return present, fetched
}

func refPresence(ref *entity.FlightRef) presenceKey {
	return presenceKey{
		Origin:       strings.ToUpper(ref.Origin),
		Destination:  strings.ToUpper(ref.Destination),
		FlightNumber: ref.Flight.FlightNumber,
		Departure:    ref.Flight.DepartureAt.Unix(),
	}
}

func rawPresence(f *entity.RawFlight) presenceKey {
	return presenceKey{
		Origin:       strings.ToUpper(f.Origin),
		Destination:  strings.ToUpper(f.Destination),
		FlightNumber: strings.TrimSpace(f.FlightNumber),
		Departure:    f.DepartureAt.Unix(),
	}
}
