package scheduler

import (
	"context"
	"fmt"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/utils"
)

// Orchestrator is the part of the sync orchestrator the periodic jobs drive
type Orchestrator interface {
	ForEachInterface(ctx context.Context, provider string, fn func(ctx context.Context, iface *entity.Interface)) error
	SyncRoutesFor(ctx context.Context, iface *entity.Interface) (entity.RouteSyncResult, error)
	UpdateByPeriodFor(ctx context.Context, iface *entity.Interface, period int) (entity.UpdateStats, error)
	UpdateDueFor(ctx context.Context, iface *entity.Interface) (entity.UpdateStats, error)
	SyncStatusFor(ctx context.Context, iface *entity.Interface) (entity.StatusSyncStats, error)
	DetectMissingFlightsFor(ctx context.Context, iface *entity.Interface) (entity.MissingStats, error)
	CleanupPastFlights(ctx context.Context) entity.CleanupStats
	FareQueueAvailable() bool
	FillMissingFareDetail(ctx context.Context) entity.FareFillStats
}

// Intervals sets how often each periodic job runs
type Intervals struct {
	Periods      map[int]time.Duration
	RouteSync    time.Duration
	StatusSync   time.Duration
	Cleanup      time.Duration
	MissingCheck time.Duration
	DueCheck     time.Duration
	FareFill     time.Duration
}

// SyncJobs builds the periodic jobs of the given providers: one loop per
// (provider, period) pair, one per provider-scoped job and the global
// cleanup and fare fill loops. Fare fill is left out when no task queue is
// connected.
func SyncJobs(o Orchestrator, providers []string, iv Intervals, log logger.Logger) []Job {
	var jobs []Job
	for _, provider := range providers {
		jobs = append(jobs, Job{
			Name:      provider + "/route_sync",
			Interval:  iv.RouteSync,
			Immediate: true,
			Run: perInterface(o, provider, log, func(ctx context.Context, iface *entity.Interface) error {
				_, err := o.SyncRoutesFor(ctx, iface)
				return err
			}),
		})

		for _, period := range utils.Periods {
			jobs = append(jobs, Job{
				Name:     fmt.Sprintf("%s/period_%d", provider, period),
				Interval: iv.Periods[period],
				Run: perInterface(o, provider, log, func(ctx context.Context, iface *entity.Interface) error {
					_, err := o.UpdateByPeriodFor(ctx, iface, period)
					return err
				}),
			})
		}

		jobs = append(jobs,
			Job{
				Name:     provider + "/due_check",
				Interval: iv.DueCheck,
				Run: perInterface(o, provider, log, func(ctx context.Context, iface *entity.Interface) error {
					_, err := o.UpdateDueFor(ctx, iface)
					return err
				}),
			},
			Job{
				Name:     provider + "/status_sync",
				Interval: iv.StatusSync,
				Run: perInterface(o, provider, log, func(ctx context.Context, iface *entity.Interface) error {
					_, err := o.SyncStatusFor(ctx, iface)
					return err
				}),
			},
			Job{
				Name:     provider + "/missing_check",
				Interval: iv.MissingCheck,
				Run: perInterface(o, provider, log, func(ctx context.Context, iface *entity.Interface) error {
					_, err := o.DetectMissingFlightsFor(ctx, iface)
					return err
				}),
			},
		)
	}

	jobs = append(jobs, Job{
		Name:     "cleanup",
		Interval: iv.Cleanup,
		Run:      func(ctx context.Context) { o.CleanupPastFlights(ctx) },
	})
	if o.FareQueueAvailable() {
		jobs = append(jobs, Job{
			Name:     "fare_fill",
			Interval: iv.FareFill,
			Run:      func(ctx context.Context) { o.FillMissingFareDetail(ctx) },
		})
	} else {
		log.Warn("Fare fill disabled, no task queue")
	}
	return jobs
}

// perInterface runs fn on every active interface of provider and logs the
// errors it returns
func perInterface(o Orchestrator, provider string, log logger.Logger, fn func(ctx context.Context, iface *entity.Interface) error) func(ctx context.Context) {
	return func(ctx context.Context) {
		err := o.ForEachInterface(ctx, provider, func(ctx context.Context, iface *entity.Interface) {
			if err := fn(ctx, iface); err != nil {
				log.Error("Job failed", "provider", provider, "interface_id", iface.ID, "code", iface.Code, "error", err)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Error("Failed to list interfaces", "provider", provider, "error", err)
		}
	}
}
