package usecase

import (
	"context"
	"fmt"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
)

// SyncOrchestrator is the entry point of every top-level sync operation. It
// resolves the provider handler and interface, then delegates. Only
// configuration errors are returned as errors; everything else is reported
// in the stats.
type SyncOrchestrator struct {
	interfaceRepo repository.InterfaceRepository
	router        ProviderRouter
	routes        *RouteSyncService
	statuses      *StatusSyncService
	cleanup       *CleanupService
	fares         *FareDetailService
	logger        logger.Logger
	now           func() time.Time
}

// NewSyncOrchestrator creates a new sync orchestrator
func NewSyncOrchestrator(
	interfaceRepo repository.InterfaceRepository,
	router ProviderRouter,
	routes *RouteSyncService,
	statuses *StatusSyncService,
	cleanup *CleanupService,
	fares *FareDetailService,
	logger logger.Logger,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		interfaceRepo: interfaceRepo,
		router:        router,
		routes:        routes,
		statuses:      statuses,
		cleanup:       cleanup,
		fares:         fares,
		logger:        logger,
		now:           time.Now,
	}
}

// resolve finds the handler and interface of a provider. An empty code
// selects the provider's first active interface.
func (o *SyncOrchestrator) resolve(ctx context.Context, provider, code string) (*ProviderHandler, *entity.Interface, error) {
	handler, err := o.router.Get(provider)
	if err != nil {
		return nil, nil, err
	}
	iface, err := o.interfaceRepo.ByProviderAndCode(ctx, provider, code)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve interface %s/%s: %w", provider, code, err)
	}
	return handler, iface, nil
}

// Interfaces lists the active interfaces of a registered provider
func (o *SyncOrchestrator) Interfaces(ctx context.Context, provider string) ([]*entity.Interface, error) {
	if _, err := o.router.Get(provider); err != nil {
		return nil, err
	}
	return o.interfaceRepo.AllActiveForProvider(ctx, provider)
}

// SyncRoutes rebuilds the route catalog of one interface
func (o *SyncOrchestrator) SyncRoutes(ctx context.Context, provider, code string) (entity.RouteSyncResult, error) {
	_, iface, err := o.resolve(ctx, provider, code)
	if err != nil {
		return entity.RouteSyncResult{}, err
	}
	return o.routes.Sync(ctx, iface), nil
}

// SyncRoutesFor rebuilds the route catalog of an already resolved interface
func (o *SyncOrchestrator) SyncRoutesFor(ctx context.Context, iface *entity.Interface) (entity.RouteSyncResult, error) {
	if _, err := o.router.Get(iface.Provider); err != nil {
		return entity.RouteSyncResult{}, err
	}
	return o.routes.Sync(ctx, iface), nil
}

// UpdateByPeriod refreshes the flights of one interface for a polling period
func (o *SyncOrchestrator) UpdateByPeriod(ctx context.Context, provider string, period int, code string) (entity.UpdateStats, error) {
	_, iface, err := o.resolve(ctx, provider, code)
	if err != nil {
		return entity.UpdateStats{}, err
	}
	return o.UpdateByPeriodFor(ctx, iface, period)
}

// UpdateByPeriodFor refreshes the flights of a resolved interface
func (o *SyncOrchestrator) UpdateByPeriodFor(ctx context.Context, iface *entity.Interface, period int) (entity.UpdateStats, error) {
	handler, err := o.router.Get(iface.Provider)
	if err != nil {
		return entity.UpdateStats{}, err
	}
	stats := handler.Updater.UpdateByPeriod(ctx, iface, period)
	o.logger.Info("Period update finished",
		"provider", iface.Provider,
		"interface_id", iface.ID,
		"period", period,
		"fetched", stats.FlightsFetched,
		"flights_new", stats.FlightsNew,
		"flights_updated", stats.FlightsUpdated,
		"classes_new", stats.ClassesNew,
		"errors", stats.Errors,
		"duration", stats.Duration)
	return stats, nil
}

// UpdateDue re-fetches flights of one interface whose next check is due
func (o *SyncOrchestrator) UpdateDue(ctx context.Context, provider, code string) (entity.UpdateStats, error) {
	_, iface, err := o.resolve(ctx, provider, code)
	if err != nil {
		return entity.UpdateStats{}, err
	}
	return o.UpdateDueFor(ctx, iface)
}

// UpdateDueFor re-fetches the due flights of a resolved interface
func (o *SyncOrchestrator) UpdateDueFor(ctx context.Context, iface *entity.Interface) (entity.UpdateStats, error) {
	handler, err := o.router.Get(iface.Provider)
	if err != nil {
		return entity.UpdateStats{}, err
	}
	return handler.Updater.UpdateDue(ctx, iface, o.now()), nil
}

// SyncStatus refreshes open state and scores of one interface
func (o *SyncOrchestrator) SyncStatus(ctx context.Context, provider, code string) (entity.StatusSyncStats, error) {
	_, iface, err := o.resolve(ctx, provider, code)
	if err != nil {
		return entity.StatusSyncStats{}, err
	}
	return o.statuses.SyncStatus(ctx, iface, o.now()), nil
}

// SyncStatusFor refreshes open state and scores of a resolved interface
func (o *SyncOrchestrator) SyncStatusFor(ctx context.Context, iface *entity.Interface) (entity.StatusSyncStats, error) {
	if _, err := o.router.Get(iface.Provider); err != nil {
		return entity.StatusSyncStats{}, err
	}
	return o.statuses.SyncStatus(ctx, iface, o.now()), nil
}

// DetectMissingFlights runs missing-flight detection on one interface
func (o *SyncOrchestrator) DetectMissingFlights(ctx context.Context, provider, code string) (entity.MissingStats, error) {
	_, iface, err := o.resolve(ctx, provider, code)
	if err != nil {
		return entity.MissingStats{}, err
	}
	return o.cleanup.DetectMissingFlights(ctx, iface), nil
}

// DetectMissingFlightsFor runs missing-flight detection on a resolved interface
func (o *SyncOrchestrator) DetectMissingFlightsFor(ctx context.Context, iface *entity.Interface) (entity.MissingStats, error) {
	if _, err := o.router.Get(iface.Provider); err != nil {
		return entity.MissingStats{}, err
	}
	return o.cleanup.DetectMissingFlights(ctx, iface), nil
}

// CleanupPastFlights deletes departed flights of every provider
func (o *SyncOrchestrator) CleanupPastFlights(ctx context.Context) entity.CleanupStats {
	return o.cleanup.CleanupPastFlights(ctx)
}

// FareQueueAvailable reports whether fare tasks can be queued
func (o *SyncOrchestrator) FareQueueAvailable() bool {
	return o.fares.QueueAvailable()
}

// FillMissingFareDetail queues fare tasks for classes lacking fare detail
func (o *SyncOrchestrator) FillMissingFareDetail(ctx context.Context) entity.FareFillStats {
	return o.fares.FillMissingFareDetail(ctx)
}

// ForEachInterface runs fn once on every active interface of provider,
// stopping early only when ctx is done
func (o *SyncOrchestrator) ForEachInterface(ctx context.Context, provider string, fn func(ctx context.Context, iface *entity.Interface)) error {
	ifaces, err := o.Interfaces(ctx, provider)
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fn(ctx, iface)
	}
	return nil
}
