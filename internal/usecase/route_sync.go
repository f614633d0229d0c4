package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"
)

// scheduleHorizonDays is how far ahead schedule based jobs look
const scheduleHorizonDays = 120

// RouteSyncService rebuilds the route catalog of an interface from its
// provider's schedule
type RouteSyncService struct {
	router    ProviderRouter
	routeRepo repository.RouteRepository
	zones     *utils.ZoneResolver
	metrics   *metrics.Metrics
	logger    logger.Logger
	now       func() time.Time
}

// NewRouteSyncService creates a new route sync service
func NewRouteSyncService(router ProviderRouter, routeRepo repository.RouteRepository, zones *utils.ZoneResolver, m *metrics.Metrics, log logger.Logger) *RouteSyncService {
	return &RouteSyncService{
		router:    router,
		routeRepo: routeRepo,
		zones:     zones,
		metrics:   m,
		logger:    log.With("component", "route_sync"),
		now:       time.Now,
	}
}

// Sync fetches the schedule, folds it into routes and reconciles the stored
// catalog. An empty schedule changes nothing.
func (s *RouteSyncService) Sync(ctx context.Context, iface *entity.Interface) entity.RouteSyncResult {
	start := time.Now()
	result := entity.RouteSyncResult{Provider: iface.Provider, InterfaceID: iface.ID}
	defer func() {
		s.metrics.OperationDuration.WithLabelValues("route_sync", iface.Provider).Observe(time.Since(start).Seconds())
		if result.Errors > 0 {
			s.metrics.OperationErrors.WithLabelValues("route_sync").Add(float64(result.Errors))
		}
	}()

	handler, err := s.router.Get(iface.Provider)
	if err != nil {
		result.Errors++
		result.Message = err.Error()
		return result
	}

	from := utils.StartOfDay(s.now(), s.zones.Fallback())
	flights, err := handler.Adapter.GetSchedule(ctx, iface, from, from.AddDate(0, 0, scheduleHorizonDays))
	if err != nil {
		result.Errors++
		result.Message = fmt.Sprintf("schedule fetch failed: %v", err)
		return result
	}

	records := handler.Analyzer.Analyze(flights)
	if len(records) == 0 {
		result.Message = "schedule returned no routes"
		s.logger.Warn("Empty schedule, keeping stored routes", "interface_id", iface.ID)
		return result
	}

	routes := make([]*entity.Route, 0, len(records))
	for _, rec := range records {
		routes = append(routes, &entity.Route{
			Provider:    iface.Provider,
			InterfaceID: iface.ID,
			Iata:        rec.Key.Iata,
			Origin:      rec.Key.Origin,
			Destination: rec.Key.Destination,
			Weekdays:    rec.Weekdays,
		})
	}
	sort.Slice(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.Iata != b.Iata {
			return a.Iata < b.Iata
		}
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		return a.Destination < b.Destination
	})

	deleted, err := s.routeRepo.Reconcile(ctx, iface.ID, routes)
	if err != nil {
		result.Errors++
		result.Message = err.Error()
		s.logger.Error("Failed to reconcile routes", "interface_id", iface.ID, "error", err)
		return result
	}

	result.Success = true
	result.RouteCount = len(routes)
	result.Deleted = deleted
	result.Message = fmt.Sprintf("synced %d routes, deleted %d", len(routes), deleted)
	s.logger.Info("Routes synced",
		"interface_id", iface.ID,
		"routes", len(routes),
		"deleted", deleted,
		"flights", len(flights))
	return result
}
