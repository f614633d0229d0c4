package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fareFixture struct {
	nira    *fakeAdapter
	flights *memFlightRepo
	queue   *memQueue
	letters *memDeadLetters
	svc     *FareDetailService
	classID uint
}

var sampleFare = &entity.RawFare{
	Breakdown: []entity.RawFareBreakdown{{PassengerType: entity.PassengerAdult, BaseFare: 4_000_000, TotalTax: 500_000, Total: 4_500_000}},
	Baggage:   []entity.RawBaggage{{PassengerType: entity.PassengerAdult, Allowance: "20K", WeightKg: 20}},
}

func newFareFixture(t *testing.T) *fareFixture {
	t.Helper()
	niraRoute := &entity.Route{ID: 1, Provider: entity.ProviderNira, InterfaceID: 7, Iata: "IV", Origin: "THR", Destination: "MHD"}
	sepehrRoute := &entity.Route{ID: 2, Provider: entity.ProviderSepehr, InterfaceID: 9, Iata: "EP", Origin: "THR", Destination: "KIH"}
	routes := &memRouteRepo{routes: []*entity.Route{niraRoute, sepehrRoute}}

	f := &fareFixture{
		nira:    &fakeAdapter{name: entity.ProviderNira, caps: entity.Capabilities{Availability: true, FareDetail: true}},
		flights: newMemFlightRepo(routes),
		queue:   &memQueue{},
		letters: &memDeadLetters{},
	}
	sepehr := &fakeAdapter{name: entity.ProviderSepehr, caps: entity.Capabilities{Schedule: true, BulkCharter: true}}

	dep := time.Date(2026, 3, 4, 8, 0, 0, 0, tehran)
	fl := seedFlight(f.flights, niraRoute, "1234", dep, openClass("Y", 4_500_000, 3), openClass("M", 6_000_000, 2))
	seedFlight(f.flights, sepehrRoute, "801", dep, openClass("Y", 3_000_000, 9))
	f.classID = f.flights.classes[fl.ID]["Y"].ID

	interfaces := &memInterfaceRepo{ifaces: []*entity.Interface{
		{ID: 7, Provider: entity.ProviderNira, Code: "IV", IsActive: true},
		{ID: 9, Provider: entity.ProviderSepehr, IsActive: true},
	}}
	router := newMapRouter(&ProviderHandler{Adapter: f.nira}, &ProviderHandler{Adapter: sepehr})
	f.svc = NewFareDetailService(router, interfaces, f.flights, f.queue, f.letters,
		FareOptions{MaxAttempts: 2}, testMetrics(), logger.NewNopLogger())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, tehran) }
	return f
}

func (f *fareFixture) task() *entity.FareTask {
	return &entity.FareTask{
		ID:            "task-1",
		Provider:      entity.ProviderNira,
		InterfaceID:   7,
		FlightClassID: f.classID,
		Origin:        "THR",
		Destination:   "MHD",
		ClassCode:     "Y",
		FlightNumber:  "1234",
		DepartureAt:   time.Date(2026, 3, 4, 4, 30, 0, 0, time.UTC),
	}
}

func TestFareDetailService_FillMissingFareDetail(t *testing.T) {
	t.Parallel()
	f := newFareFixture(t)

	stats := f.svc.FillMissingFareDetail(context.Background())

	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Queued)
	require.Len(t, f.queue.tasks, 2)
	for _, task := range f.queue.tasks {
		assert.Equal(t, entity.ProviderNira, task.Provider)
		assert.Equal(t, uint(7), task.InterfaceID)
		assert.Equal(t, "1234", task.FlightNumber)
	}
}

func TestFareDetailService_FillMissingFareDetailEnqueueFailure(t *testing.T) {
	t.Parallel()
	f := newFareFixture(t)
	f.queue.err = errDown

	stats := f.svc.FillMissingFareDetail(context.Background())

	assert.Equal(t, 2, stats.Candidates)
	assert.Zero(t, stats.Queued)
	assert.Equal(t, 2, stats.Errors)
}

func TestFareDetailService_FillMissingFareDetailWithoutQueue(t *testing.T) {
	t.Parallel()
	f := newFareFixture(t)
	f.svc.queue = nil

	require.False(t, f.svc.QueueAvailable())
	var stats entity.FareFillStats
	require.NotPanics(t, func() { stats = f.svc.FillMissingFareDetail(context.Background()) })

	assert.Zero(t, stats.Candidates)
	assert.Zero(t, stats.Queued)
	assert.Zero(t, stats.Errors)
	assert.Empty(t, f.queue.tasks)
}

func TestFareDetailService_HandleTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		provider   string
		responses  []error
		wantCalls  int
		wantErr    error
		wantLetter bool
	}{
		{name: "first try", responses: []error{nil}, wantCalls: 1},
		{name: "retried once", responses: []error{errDown, nil}, wantCalls: 2},
		{name: "exhausted", responses: []error{errDown, errDown, errDown}, wantCalls: 2, wantErr: errDown, wantLetter: true},
		{name: "unsupported is not retried", responses: []error{entity.ErrCapabilityUnsupported}, wantCalls: 1, wantErr: entity.ErrCapabilityUnsupported, wantLetter: true},
		{name: "unknown provider", provider: "amadeus", wantErr: entity.ErrUnknownProvider, wantLetter: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFareFixture(t)
			var seen entity.FareRequest
			f.nira.fare = func(req entity.FareRequest) (*entity.RawFare, error) {
				seen = req
				err := tt.responses[min(f.nira.fareCalls, len(tt.responses))-1]
				if err != nil {
					return nil, err
				}
				return sampleFare, nil
			}

			task := f.task()
			if tt.provider != "" {
				task.Provider = tt.provider
			}
			err := f.svc.HandleTask(context.Background(), task)

			assert.Equal(t, tt.wantCalls, f.nira.fareCalls)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "MHD", seen.Destination)
				assert.Equal(t, "Y", seen.ClassCode)
				assert.Same(t, sampleFare, f.flights.fares[f.classID])
			}

			if !tt.wantLetter {
				assert.Empty(t, f.letters.letters)
				return
			}
			require.Len(t, f.letters.letters, 1)
			letter := f.letters.letters[0]
			assert.Equal(t, "task-1", letter.TaskID)
			assert.Equal(t, "fare_detail", letter.Kind)
			assert.Equal(t, tt.wantCalls, letter.Attempts)
			assert.NotEmpty(t, letter.Error)

			var payload entity.FareTask
			require.NoError(t, json.Unmarshal([]byte(letter.Payload), &payload))
			assert.Equal(t, f.classID, payload.FlightClassID)
			_, stored := f.flights.fares[f.classID]
			assert.False(t, stored, "existing data is kept")
		})
	}
}
