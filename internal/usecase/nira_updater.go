package usecase

import (
	"context"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// NiraOptions tunes the pooled fetch of the NIRA updater
type NiraOptions struct {
	// PoolSize caps concurrent requests per base URL within a round
	PoolSize int
	// Pause separates consecutive rounds
	Pause time.Duration
}

// NiraUpdater refreshes flights of NIRA airlines with one availability call
// per (route, date), spread over the interface's base URLs
type NiraUpdater struct {
	flightPipeline
	routeRepo repository.RouteRepository
	opts      NiraOptions
	now       func() time.Time
}

// NewNiraUpdater creates a new NIRA flight updater. queue may be nil.
func NewNiraUpdater(
	adapter repository.ProviderAdapter,
	routeRepo repository.RouteRepository,
	flightRepo repository.FlightRepository,
	queue repository.TaskQueue,
	zones *utils.ZoneResolver,
	opts NiraOptions,
	m *metrics.Metrics,
	log logger.Logger,
) *NiraUpdater {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 5
	}
	return &NiraUpdater{
		flightPipeline: flightPipeline{
			adapter:    adapter,
			flightRepo: flightRepo,
			queue:      queue,
			zones:      zones,
			metrics:    m,
			logger:     log.With("provider", adapter.Name(), "component", "updater"),
		},
		routeRepo: routeRepo,
		opts:      opts,
		now:       time.Now,
	}
}

// fetchTask is one availability call
type fetchTask struct {
	baseURL string
	route   *entity.Route
	date    time.Time
	group   groupKey
}

type fetchResult struct {
	flights []entity.RawFlight
	err     error
}

// UpdateByPeriod fetches every route of the interface for every date of the
// period its weekday flags allow
func (u *NiraUpdater) UpdateByPeriod(ctx context.Context, iface *entity.Interface, period int) entity.UpdateStats {
	start := time.Now()
	stats := entity.UpdateStats{Provider: u.adapter.Name(), InterfaceID: iface.ID, Period: period}
	defer u.observe("update_period", start, &stats)

	dates, err := utils.PeriodDates(period, u.now(), u.zones.Fallback())
	if err != nil {
		stats.Errors++
		u.logger.Error("Invalid period", "period", period, "error", err)
		return stats
	}

	routes, err := u.routeRepo.FindByInterface(ctx, iface.ID)
	if err != nil {
		stats.Errors++
		u.logger.Error("Failed to load routes", "interface_id", iface.ID, "error", err)
		return stats
	}
	stats.Routes = len(routes)

	var tasks []fetchTask
	for _, route := range routes {
		for _, date := range dates {
			if !route.Weekdays.On(date.Weekday()) {
				continue
			}
			tasks = append(tasks, fetchTask{
				route: route,
				date:  date,
				group: groupKey{RouteID: route.ID, Date: date.Format(utils.DateLayout)},
			})
		}
	}

	u.logger.Info("Updating flights by period",
		"interface_id", iface.ID,
		"period", period,
		"routes", len(routes),
		"tasks", len(tasks))

	u.run(ctx, iface, routeIndex(routes), tasks, &stats)
	return stats
}

// UpdateDue re-fetches the (route, date) groups of flights whose next check
// is due and rescores them
func (u *NiraUpdater) UpdateDue(ctx context.Context, iface *entity.Interface, now time.Time) entity.UpdateStats {
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

	routes, err := u.routeRepo.FindByInterface(ctx, iface.ID)
	if err != nil {
		stats.Errors++
		u.logger.Error("Failed to load routes", "interface_id", iface.ID, "error", err)
		return stats
	}
	index := routeIndex(routes)

	var tasks []fetchTask
	seen := make(map[groupKey]bool)
	for _, ref := range due {
		route, ok := index[ref.Flight.RouteID]
		if !ok {
			continue
		}
		date, day := u.localDate(ctx, route.Origin, ref.Flight.DepartureAt)
		key := groupKey{RouteID: route.ID, Date: date}
		if seen[key] {
			continue
		}
		seen[key] = true
		tasks = append(tasks, fetchTask{route: route, date: day, group: key})
	}
	stats.Routes = len(seen)

	fetched, ok := u.run(ctx, iface, index, tasks, &stats)
	u.rescore(ctx, due, fetched, func(ref *entity.FlightRef) bool {
		route, found := index[ref.Flight.RouteID]
		if !found {
			return false
		}
		date, _ := u.localDate(ctx, route.Origin, ref.Flight.DepartureAt)
		return ok[groupKey{RouteID: route.ID, Date: date}]
	}, now, &stats)
	return stats
}

// run distributes tasks over base URLs, fetches them in interleaved rounds
// and persists each round once all of its fetches are done. It returns the
// bundles it built and the groups whose fetch succeeded.
func (u *NiraUpdater) run(ctx context.Context, iface *entity.Interface, routes map[uint]*entity.Route, tasks []fetchTask, stats *entity.UpdateStats) (map[flightKey]*entity.FlightBundle, map[groupKey]bool) {
	stats.Tasks += len(tasks)
	fetched := make(map[flightKey]*entity.FlightBundle)
	succeeded := make(map[groupKey]bool)

	for i, round := range u.rounds(iface, tasks) {
		if i > 0 && u.opts.Pause > 0 {
			select {
			case <-ctx.Done():
				stats.Errors++
				return fetched, succeeded
			case <-time.After(u.opts.Pause):
			}
		}

		results := make([]fetchResult, len(round))
		var g errgroup.Group
		for j := range round {
			g.Go(func() error {
				t := round[j]
				target := *iface
				target.BaseURL = t.baseURL
				flights, err := u.adapter.GetAvailability(ctx, &target, t.route.Origin, t.route.Destination, t.date)
				results[j] = fetchResult{flights: flights, err: err}
				return nil
			})
		}
		_ = g.Wait()

		var bundles []entity.FlightBundle
		for j, res := range results {
			t := round[j]
			if res.err != nil {
				stats.Errors++
				continue
			}
			succeeded[t.group] = true
			bundles = append(bundles, u.normalize(t.route, res.flights, stats)...)
		}

		u.persist(ctx, iface, routes, bundles, stats)
		for k, b := range bundleIndex(bundles) {
			fetched[k] = b
		}
	}
	return fetched, succeeded
}

// rounds groups tasks by base URL and slices them into rounds holding at
// most PoolSize tasks per URL, interleaved across URLs
func (u *NiraUpdater) rounds(iface *entity.Interface, tasks []fetchTask) [][]fetchTask {
	urls := iface.BaseURLs()
	if len(urls) == 0 {
		urls = []string{iface.BaseURL}
	}

	queues := make([][]fetchTask, len(urls))
	for i, t := range tasks {
		slot := i % len(urls)
		t.baseURL = urls[slot]
		queues[slot] = append(queues[slot], t)
	}

	var rounds [][]fetchTask
	for offset := 0; ; offset += u.opts.PoolSize {
		var round []fetchTask
		for k := 0; k < u.opts.PoolSize; k++ {
			for _, q := range queues {
				if offset+k < len(q) {
					round = append(round, q[offset+k])
				}
			}
		}
		if len(round) == 0 {
			return rounds
		}
		rounds = append(rounds, round)
	}
}
