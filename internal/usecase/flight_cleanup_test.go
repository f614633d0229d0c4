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

func TestCleanupService_CleanupPastFlights(t *testing.T) {
	t.Parallel()

	route := &entity.Route{ID: 1, Provider: entity.ProviderNira, InterfaceID: 7, Iata: "IV", Origin: "THR", Destination: "MHD"}
	flights := newMemFlightRepo(&memRouteRepo{routes: []*entity.Route{route}})
	seedFlight(flights, route, "100", time.Date(2026, 3, 1, 23, 0, 0, 0, tehran), openClass("Y", 1, 1))
	seedFlight(flights, route, "200", time.Date(2026, 3, 2, 1, 0, 0, 0, tehran), openClass("Y", 1, 1))

	svc := NewCleanupService(newMapRouter(), flights, testZones(), 5, testMetrics(), logger.NewNopLogger())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, tehran) }

	stats := svc.CleanupPastFlights(context.Background())

	assert.Equal(t, int64(1), stats.Deleted)
	assert.True(t, stats.Cutoff.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, tehran)))
	remaining := flights.all()
	require.Len(t, remaining, 1)
	assert.Equal(t, "200", remaining[0].FlightNumber)
}

type missingFixture struct {
	adapter *fakeAdapter
	flights *memFlightRepo
	svc     *CleanupService
	iface   *entity.Interface
	ids     map[string]uint
}

// newMissingFixture stores four flights: 100, 200 and 300 on 3 March, 400 on
// 4 March. 100 was missed once before, 300 twice.
func newMissingFixture(t *testing.T, caps entity.Capabilities) *missingFixture {
	t.Helper()
	route := &entity.Route{ID: 1, Provider: entity.ProviderNira, InterfaceID: 7, Iata: "IV", Origin: "THR", Destination: "MHD"}
	f := &missingFixture{
		adapter: &fakeAdapter{name: entity.ProviderNira, caps: caps},
		flights: newMemFlightRepo(&memRouteRepo{routes: []*entity.Route{route}}),
		iface:   &entity.Interface{ID: 7, Provider: entity.ProviderNira, Code: "IV"},
		ids:     map[string]uint{},
	}

	dep := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 0, 0, 0, tehran) }
	for _, s := range []struct {
		number  string
		dep     time.Time
		missing int
	}{
		{"100", dep(3, 8), 1},
		{"200", dep(3, 12), 0},
		{"300", dep(3, 18), 2},
		{"400", dep(4, 8), 0},
	} {
		fl := seedFlight(f.flights, route, s.number, s.dep, openClass("Y", 1_000_000, 4))
		fl.MissingCount = s.missing
		f.ids[s.number] = fl.ID
	}

	// only 100 is still listed on 3 March; 4 March cannot be fetched
	present := rawFlight("IV", "100", "THR", "MHD", dep(3, 8), openClass("Y", 1_000_000, 4))
	f.adapter.availability = func(_, _, _ string, date time.Time) ([]entity.RawFlight, error) {
		if date.Day() == 4 {
			return nil, errDown
		}
		return []entity.RawFlight{present}, nil
	}
	f.adapter.schedule = func(time.Time, time.Time) ([]entity.RawFlight, error) {
		return []entity.RawFlight{present}, nil
	}

	f.svc = NewCleanupService(newMapRouter(&ProviderHandler{Adapter: f.adapter}), f.flights, testZones(), 2, testMetrics(), logger.NewNopLogger())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, tehran) }
	return f
}

func (f *missingFixture) flight(number string) *entity.Flight {
	return f.flights.byID(f.ids[number])
}

func TestCleanupService_DetectMissingFlights(t *testing.T) {
	t.Parallel()
	f := newMissingFixture(t, entity.Capabilities{Availability: true})

	stats := f.svc.DetectMissingFlights(context.Background(), f.iface)

	assert.Equal(t, 4, stats.Checked)
	assert.Equal(t, 2, stats.Groups)
	assert.Equal(t, 1, stats.Errors, "failed group")
	assert.Equal(t, 1, stats.Reset)
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 1, stats.Deleted)

	calls := f.adapter.calls()
	assert.Len(t, calls, 2)

	require.NotNil(t, f.flight("100"))
	assert.Zero(t, f.flight("100").MissingCount)

	require.NotNil(t, f.flight("200"))
	assert.Equal(t, 1, f.flight("200").MissingCount)
	assert.False(t, f.flight("200").IsOpen)

	assert.Nil(t, f.flight("300"), "reached the threshold")

	require.NotNil(t, f.flight("400"))
	assert.Zero(t, f.flight("400").MissingCount)
	assert.True(t, f.flight("400").IsOpen)
}

func TestCleanupService_DetectMissingFlightsBulk(t *testing.T) {
	t.Parallel()
	f := newMissingFixture(t, entity.Capabilities{Schedule: true, BulkCharter: true})

	stats := f.svc.DetectMissingFlights(context.Background(), f.iface)

	assert.Equal(t, 1, f.adapter.schedCalls)
	assert.Empty(t, f.adapter.calls())
	assert.Zero(t, stats.Errors)
	assert.Equal(t, 2, stats.Missing, "200 and 400")
	assert.Equal(t, 1, stats.Deleted)
	assert.Equal(t, 1, stats.Reset)
}

func TestCleanupService_DetectMissingFlightsBulkFailure(t *testing.T) {
	t.Parallel()
	f := newMissingFixture(t, entity.Capabilities{Schedule: true, BulkCharter: true})
	f.adapter.schedule = func(time.Time, time.Time) ([]entity.RawFlight, error) { return nil, errDown }

	stats := f.svc.DetectMissingFlights(context.Background(), f.iface)

	assert.Equal(t, 2, stats.Errors)
	assert.Zero(t, stats.Missing)
	assert.Zero(t, stats.Deleted)
	assert.Len(t, f.flights.all(), 4)
}
