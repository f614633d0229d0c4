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

// StatusSyncService refreshes the open state and score of every upcoming
// flight from one wide schedule call
type StatusSyncService struct {
	router     ProviderRouter
	flightRepo repository.FlightRepository
	zones      *utils.ZoneResolver
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewStatusSyncService creates a new status sync service
func NewStatusSyncService(router ProviderRouter, flightRepo repository.FlightRepository, zones *utils.ZoneResolver, m *metrics.Metrics, log logger.Logger) *StatusSyncService {
	return &StatusSyncService{
		router:     router,
		flightRepo: flightRepo,
		zones:      zones,
		metrics:    m,
		logger:     log.With("component", "status_sync"),
	}
}

// scheduleKey matches schedule records to stored flights
type scheduleKey struct {
	Origin       string
	Destination  string
	FlightNumber string
	Departure    int64
}

// SyncStatus recomputes is_open, aggregates, score and next check of the
// upcoming flights of iface. Flights absent from the schedule are closed.
func (s *StatusSyncService) SyncStatus(ctx context.Context, iface *entity.Interface, now time.Time) entity.StatusSyncStats {
	start := time.Now()
	stats := entity.StatusSyncStats{Provider: iface.Provider, InterfaceID: iface.ID}
	defer func() {
		s.metrics.OperationDuration.WithLabelValues("status_sync", iface.Provider).Observe(time.Since(start).Seconds())
		if stats.Errors > 0 {
			s.metrics.OperationErrors.WithLabelValues("status_sync").Add(float64(stats.Errors))
		}
	}()

	handler, err := s.router.Get(iface.Provider)
	if err != nil {
		stats.Errors++
		s.logger.Error("No handler for provider", "provider", iface.Provider, "error", err)
		return stats
	}

	loc := s.zones.Fallback()
	from := utils.StartOfDay(now, loc)
	schedule, err := handler.Adapter.GetSchedule(ctx, iface, from, from.AddDate(0, 0, scheduleHorizonDays))
	if err != nil {
		stats.Errors++
		return stats
	}

	refs, err := s.flightRepo.FindUpcoming(ctx, iface.ID, now)
	if err != nil {
		stats.Errors++
		s.logger.Error("Failed to load upcoming flights", "interface_id", iface.ID, "error", err)
		return stats
	}
	stats.Flights = len(refs)
	if len(refs) == 0 {
		return stats
	}

	scheduled := make(map[scheduleKey]*entity.RawFlight, len(schedule))
	for i := range schedule {
		f := &schedule[i]
		scheduled[scheduleKey{
			Origin:       strings.ToUpper(f.Origin),
			Destination:  strings.ToUpper(f.Destination),
			FlightNumber: strings.TrimSpace(f.FlightNumber),
			Departure:    f.DepartureAt.Unix(),
		}] = f
	}

	// stored classes are only needed for flights the schedule lists without classes
	var needStored []uint
	for _, ref := range refs {
		if f, ok := scheduled[refKey(ref)]; ok && len(f.Classes) == 0 {
			needStored = append(needStored, ref.Flight.ID)
		}
	}
	stored := map[uint][]*entity.FlightClass{}
	if len(needStored) > 0 {
		stored, err = s.flightRepo.ClassesByFlight(ctx, needStored)
		if err != nil {
			stats.Errors++
			s.logger.Error("Failed to load stored classes", "interface_id", iface.ID, "error", err)
			return stats
		}
	}

	statuses := make([]entity.FlightStatus, 0, len(refs))
	for _, ref := range refs {
		status := entity.FlightStatus{
			RouteID:         ref.Flight.RouteID,
			FlightNumber:    ref.Flight.FlightNumber,
			DepartureAt:     ref.Flight.DepartureAt,
			StatusCheckedAt: now.UTC(),
		}

		if f, ok := scheduled[refKey(ref)]; ok {
			var summary classSummary
			if len(f.Classes) > 0 {
				b, _ := buildBundle(&entity.Route{ID: ref.Flight.RouteID, Origin: ref.Origin, Destination: ref.Destination}, f)
				summary = classSummary{
					IsOpen:         b.Flight.IsOpen,
					OpenClassCount: b.Flight.OpenClassCount,
					MinPrice:       b.Flight.MinPrice,
					MinCapacity:    b.Flight.MinCapacity,
				}
			} else {
				classes := make([]entity.FlightClass, 0, len(stored[ref.Flight.ID]))
				for _, c := range stored[ref.Flight.ID] {
					classes = append(classes, *c)
				}
				summary = summarize(classes)
			}
			status.IsOpen = summary.IsOpen
			status.OpenClassCount = summary.OpenClassCount
			status.MinPrice = summary.MinPrice
			status.MinCapacity = summary.MinCapacity
			status.FlightScore, status.NextCheckAt = utils.ScoreFlight(
				summary.OpenClassCount, summary.MinCapacity, summary.MinPrice, ref.Flight.DepartureAt, now, loc)
		}

		if status.IsOpen {
			stats.Open++
		} else {
			stats.Closed++
		}
		statuses = append(statuses, status)
	}

	updated, err := s.flightRepo.UpdateStatuses(ctx, statuses)
	if err != nil {
		stats.Errors++
		s.logger.Error("Failed to write flight statuses", "interface_id", iface.ID, "error", err)
		return stats
	}
	stats.Updated = updated

	s.logger.Info("Status sync finished",
		"interface_id", iface.ID,
		"flights", stats.Flights,
		"open", stats.Open,
		"closed", stats.Closed)
	return stats
}

func refKey(ref *entity.FlightRef) scheduleKey {
	return scheduleKey{
		Origin:       strings.ToUpper(ref.Origin),
		Destination:  strings.ToUpper(ref.Destination),
		FlightNumber: ref.Flight.FlightNumber,
		Departure:    ref.Flight.DepartureAt.Unix(),
	}
}
