package usecase

import (
	"context"
	"testing"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type niraFixture struct {
	adapter *fakeAdapter
	routes  *memRouteRepo
	flights *memFlightRepo
	queue   *memQueue
	updater *NiraUpdater
	iface   *entity.Interface
	now     time.Time
}

// newNiraFixture wires an updater over one IV route THR-MHD on two base URLs.
// "Monday 2 March 2026 09:00" in Tehran is the clock.
func newNiraFixture(t *testing.T, weekdays entity.Weekdays) *niraFixture {
	t.Helper()
	f := &niraFixture{
		adapter: &fakeAdapter{
			name: entity.ProviderNira,
			caps: entity.Capabilities{Schedule: true, Availability: true, FareDetail: true},
		},
		routes: &memRouteRepo{routes: []*entity.Route{{
			ID: 1, Provider: entity.ProviderNira, InterfaceID: 7, Iata: "IV",
			Origin: "THR", Destination: "MHD", Weekdays: weekdays,
		}}},
		queue: &memQueue{},
		iface: &entity.Interface{ID: 7, Provider: entity.ProviderNira, Code: "IV", BaseURL: "http://a, http://b/", IsActive: true},
		now:   time.Date(2026, 3, 2, 9, 0, 0, 0, tehran),
	}
	f.flights = newMemFlightRepo(f.routes)
	f.adapter.availability = dailyFlight
	f.updater = NewNiraUpdater(f.adapter, f.routes, f.flights, f.queue, testZones(),
		NiraOptions{PoolSize: 5}, testMetrics(), logger.NewNopLogger())
	f.updater.now = func() time.Time { return f.now }
	return f
}

// dailyFlight returns IV 1234 at 14:30 local with one sellable and one
// unpriced class
func dailyFlight(_, origin, destination string, date time.Time) ([]entity.RawFlight, error) {
	dep := time.Date(date.Year(), date.Month(), date.Day(), 14, 30, 0, 0, tehran)
	return []entity.RawFlight{
		rawFlight("IV", "1234", origin, destination, dep,
			openClass("Y", 12_500_000, 5),
			entity.RawClass{Code: "Z", Status: entity.ClassStatusActive, AvailableSeats: 9}),
	}, nil
}

func TestNiraUpdater_UpdateByPeriodIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())
	ctx := context.Background()

	first := f.updater.UpdateByPeriod(ctx, f.iface, 3)
	assert.Equal(t, 4, first.Tasks)
	assert.Equal(t, 4, first.FlightsFetched)
	assert.Equal(t, 4, first.FlightsNew)
	assert.Equal(t, 4, first.ClassesNew)
	assert.Equal(t, 4, first.ClassesDropped)
	assert.Equal(t, 4, first.FareTasksQueued)
	assert.Zero(t, first.Errors)

	second := f.updater.UpdateByPeriod(ctx, f.iface, 3)
	assert.Zero(t, second.FlightsNew)
	assert.Equal(t, 4, second.FlightsUpdated)
	assert.Zero(t, second.ClassesNew)
	assert.Zero(t, second.FareTasksQueued)

	flights := f.flights.all()
	require.Len(t, flights, 4)
	assert.Equal(t, 4, f.flights.classCount())
	assert.Len(t, f.queue.tasks, 4)
	for _, fl := range flights {
		assert.True(t, fl.IsOpen)
		assert.Equal(t, 1, fl.OpenClassCount)
		assert.Equal(t, int64(12_500_000), fl.MinPrice)
		assert.Equal(t, time.UTC, fl.DepartureAt.Location())
	}

	task := f.queue.tasks[0]
	assert.Equal(t, entity.ProviderNira, task.Provider)
	assert.Equal(t, uint(7), task.InterfaceID)
	assert.Equal(t, "THR", task.Origin)
	assert.Equal(t, "Y", task.ClassCode)
}

func TestNiraUpdater_WeekdayFilter(t *testing.T) {
	t.Parallel()
	var mondays entity.Weekdays
	mondays[time.Monday] = true
	f := newNiraFixture(t, mondays)

	stats := f.updater.UpdateByPeriod(context.Background(), f.iface, 7)

	assert.Equal(t, 1, stats.Tasks)
	calls := f.adapter.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "2026-03-09", calls[0].date)
	assert.Equal(t, "THR", calls[0].origin)
}

func TestNiraUpdater_InvalidPeriod(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())

	stats := f.updater.UpdateByPeriod(context.Background(), f.iface, 14)

	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, f.adapter.calls())
}

func TestNiraUpdater_FailedFetchesAreCounted(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())
	f.adapter.availability = func(baseURL, origin, destination string, date time.Time) ([]entity.RawFlight, error) {
		if baseURL == "http://b" {
			return nil, errDown
		}
		return dailyFlight(baseURL, origin, destination, date)
	}

	stats := f.updater.UpdateByPeriod(context.Background(), f.iface, 3)

	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 2, stats.FlightsNew)
	assert.Len(t, f.flights.all(), 2)
}

func TestNiraUpdater_PersistFailureDoesNotAbort(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())
	f.flights.saveErr = errDown

	stats := f.updater.UpdateByPeriod(context.Background(), f.iface, 3)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 4, stats.FlightsFetched)
	assert.Zero(t, stats.FlightsNew)
	assert.Empty(t, f.queue.tasks)
}

func TestNiraUpdater_Rounds(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())
	f.updater.opts.PoolSize = 2

	tasks := make([]fetchTask, 7)
	for i := range tasks {
		tasks[i] = fetchTask{group: groupKey{RouteID: uint(i)}}
	}
	rounds := f.updater.rounds(f.iface, tasks)

	require.Len(t, rounds, 2)
	require.Len(t, rounds[0], 4)
	require.Len(t, rounds[1], 3)

	var urls []string
	for _, task := range rounds[0] {
		urls = append(urls, task.baseURL)
	}
	assert.Equal(t, []string{"http://a", "http://b", "http://a", "http://b"}, urls)

	perURL := map[string]int{}
	for _, task := range rounds[1] {
		perURL[task.baseURL]++
	}
	assert.Equal(t, map[string]int{"http://a": 2, "http://b": 1}, perURL)

	seen := map[uint]bool{}
	for _, round := range rounds {
		for _, task := range round {
			seen[task.group.RouteID] = true
		}
	}
	assert.Len(t, seen, 7)
}

func TestNiraUpdater_SpreadsCallsOverBaseURLs(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())

	f.updater.UpdateByPeriod(context.Background(), f.iface, 3)

	perURL := map[string]int{}
	for _, c := range f.adapter.calls() {
		perURL[c.baseURL]++
	}
	assert.Equal(t, map[string]int{"http://a": 2, "http://b": 2}, perURL)
}

func TestNiraUpdater_UpdateDue(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())
	ctx := context.Background()

	f.updater.UpdateByPeriod(ctx, f.iface, 3)
	past := f.now.Add(-time.Minute)
	for _, fl := range f.flights.flights {
		fl.NextCheckAt = &past
	}

	f.adapter.availability = func(baseURL, origin, destination string, date time.Time) ([]entity.RawFlight, error) {
		switch date.Day() {
		case 3:
			return nil, nil
		case 4:
			return nil, errDown
		}
		return dailyFlight(baseURL, origin, destination, date)
	}

	stats := f.updater.UpdateDue(ctx, f.iface, f.now)
	assert.Equal(t, 4, stats.Tasks)
	assert.Equal(t, 1, stats.Errors)

	byDay := map[int]entity.Flight{}
	for _, fl := range f.flights.all() {
		byDay[fl.DepartureAt.In(tehran).Day()] = fl
	}
	require.Len(t, byDay, 4)

	for _, day := range []int{2, 5} {
		fl := byDay[day]
		assert.True(t, fl.IsOpen, "day %d", day)
		assert.Positive(t, fl.FlightScore, "day %d", day)
		require.NotNil(t, fl.NextCheckAt, "day %d", day)
		assert.True(t, fl.NextCheckAt.After(f.now), "day %d", day)
	}

	gone := byDay[3]
	assert.False(t, gone.IsOpen)
	assert.Zero(t, gone.FlightScore)
	assert.Nil(t, gone.NextCheckAt)
	require.NotNil(t, gone.StatusCheckedAt)

	failed := byDay[4]
	require.NotNil(t, failed.NextCheckAt)
	assert.True(t, failed.NextCheckAt.Equal(past))
}

func TestNiraUpdater_UpdateDueWithNothingDue(t *testing.T) {
	t.Parallel()
	f := newNiraFixture(t, allWeek())

	stats := f.updater.UpdateDue(context.Background(), f.iface, f.now)

	assert.Zero(t, stats.Tasks)
	assert.Empty(t, f.adapter.calls())
}
