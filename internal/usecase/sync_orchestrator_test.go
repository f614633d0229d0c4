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

type recordingUpdater struct {
	periods []int
	ifaces  []uint
	dueAt   []time.Time
}

func (u *recordingUpdater) UpdateByPeriod(_ context.Context, iface *entity.Interface, period int) entity.UpdateStats {
	u.periods = append(u.periods, period)
	u.ifaces = append(u.ifaces, iface.ID)
	return entity.UpdateStats{InterfaceID: iface.ID, Period: period, FlightsNew: 3}
}

func (u *recordingUpdater) UpdateDue(_ context.Context, iface *entity.Interface, now time.Time) entity.UpdateStats {
	u.dueAt = append(u.dueAt, now)
	u.ifaces = append(u.ifaces, iface.ID)
	return entity.UpdateStats{InterfaceID: iface.ID}
}

func newTestOrchestrator(t *testing.T) (*SyncOrchestrator, *recordingUpdater) {
	t.Helper()
	return newOrchestratorWith(t, entity.ProviderNira, []*entity.Interface{
		{ID: 7, Provider: entity.ProviderNira, Code: "IV", IsActive: true},
		{ID: 8, Provider: entity.ProviderNira, Code: "EP", IsActive: false},
		{ID: 9, Provider: entity.ProviderNira, Code: "ZV", IsActive: true},
	})
}

func newOrchestratorWith(t *testing.T, provider string, ifaces []*entity.Interface) (*SyncOrchestrator, *recordingUpdater) {
	t.Helper()
	updater := &recordingUpdater{}
	adapter := &fakeAdapter{name: provider, caps: entity.Capabilities{Schedule: true, Availability: true}}
	router := newMapRouter(&ProviderHandler{Adapter: adapter, Analyzer: &fakeAnalyzer{}, Updater: updater})

	interfaces := &memInterfaceRepo{ifaces: ifaces}
	routes := &memRouteRepo{}
	flights := newMemFlightRepo(routes)
	m, zones, log := testMetrics(), testZones(), logger.NewNopLogger()

	o := NewSyncOrchestrator(interfaces, router,
		NewRouteSyncService(router, routes, zones, m, log),
		NewStatusSyncService(router, flights, zones, m, log),
		NewCleanupService(router, flights, zones, 5, m, log),
		NewFareDetailService(router, interfaces, flights, &memQueue{}, nil, FareOptions{}, m, log),
		log)
	o.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, tehran) }
	return o, updater
}

func TestSyncOrchestrator_ConfigurationErrors(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name:    "unknown provider",
			call:    func() error { _, err := o.SyncRoutes(ctx, "amadeus", ""); return err },
			wantErr: entity.ErrUnknownProvider,
		},
		{
			name:    "inactive interface",
			call:    func() error { _, err := o.UpdateByPeriod(ctx, entity.ProviderNira, 3, "EP"); return err },
			wantErr: entity.ErrInterfaceNotFound,
		},
		{
			name:    "unknown code",
			call:    func() error { _, err := o.SyncStatus(ctx, entity.ProviderNira, "W5"); return err },
			wantErr: entity.ErrInterfaceNotFound,
		},
		{
			name:    "missing check on unknown provider",
			call:    func() error { _, err := o.DetectMissingFlights(ctx, "amadeus", "IV"); return err },
			wantErr: entity.ErrUnknownProvider,
		},
		{
			name:    "due check on unknown code",
			call:    func() error { _, err := o.UpdateDue(ctx, entity.ProviderNira, "XX"); return err },
			wantErr: entity.ErrInterfaceNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestSyncOrchestrator_Delegates(t *testing.T) {
	t.Parallel()
	o, updater := newTestOrchestrator(t)
	ctx := context.Background()

	stats, err := o.UpdateByPeriod(ctx, entity.ProviderNira, 30, "zv")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FlightsNew)
	assert.Equal(t, []int{30}, updater.periods)
	assert.Equal(t, []uint{9}, updater.ifaces)

	_, err = o.UpdateDue(ctx, entity.ProviderNira, "")
	require.NoError(t, err)
	assert.Equal(t, []uint{9, 7}, updater.ifaces, "empty code selects the first active interface")
	require.Len(t, updater.dueAt, 1)
	assert.True(t, updater.dueAt[0].Equal(o.now()))

	result, err := o.SyncRoutes(ctx, entity.ProviderNira, "IV")
	require.NoError(t, err)
	assert.False(t, result.Success, "empty schedule")

	status, err := o.SyncStatus(ctx, entity.ProviderNira, "IV")
	require.NoError(t, err)
	assert.Zero(t, status.Errors)

	assert.Zero(t, o.FillMissingFareDetail(ctx).Queued)
	assert.Zero(t, o.CleanupPastFlights(ctx).Deleted)
}

func TestSyncOrchestrator_ForEachInterface(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)

	var ids []uint
	err := o.ForEachInterface(context.Background(), entity.ProviderNira, func(_ context.Context, iface *entity.Interface) {
		ids = append(ids, iface.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{7, 9}, ids)

	err = o.ForEachInterface(context.Background(), "amadeus", func(context.Context, *entity.Interface) {})
	require.ErrorIs(t, err, entity.ErrUnknownProvider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ids = nil
	err = o.ForEachInterface(ctx, entity.ProviderNira, func(_ context.Context, iface *entity.Interface) {
		ids = append(ids, iface.ID)
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ids)
}

func TestSyncOrchestrator_ForEachInterfaceVisitsEachInterfaceOnce(t *testing.T) {
	t.Parallel()
	o, updater := newOrchestratorWith(t, entity.ProviderSepehr, []*entity.Interface{
		{ID: 1, Provider: entity.ProviderSepehr, Code: "", IsActive: true},
		{ID: 2, Provider: entity.ProviderSepehr, Code: "", IsActive: true},
		{ID: 3, Provider: entity.ProviderSepehr, Code: "ep", IsActive: true},
	})
	ctx := context.Background()

	err := o.ForEachInterface(ctx, entity.ProviderSepehr, func(ctx context.Context, iface *entity.Interface) {
		_, err := o.UpdateByPeriodFor(ctx, iface, 7)
		require.NoError(t, err)
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, updater.ifaces)
	assert.Equal(t, []int{7, 7, 7}, updater.periods)

	err = o.ForEachInterface(ctx, entity.ProviderSepehr, func(ctx context.Context, iface *entity.Interface) {
		_, err := o.UpdateDueFor(ctx, iface)
		require.NoError(t, err)
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3, 1, 2, 3}, updater.ifaces)

	// a lowercase stored code still resolves by code
	_, err = o.UpdateByPeriod(ctx, entity.ProviderSepehr, 3, "EP")
	require.NoError(t, err)
	assert.Equal(t, uint(3), updater.ifaces[len(updater.ifaces)-1])
}

func TestSyncOrchestrator_ResolvedInterfaceOfUnknownProvider(t *testing.T) {
	t.Parallel()
	o, updater := newTestOrchestrator(t)
	ctx := context.Background()
	iface := &entity.Interface{ID: 40, Provider: "amadeus"}

	_, err := o.UpdateByPeriodFor(ctx, iface, 3)
	require.ErrorIs(t, err, entity.ErrUnknownProvider)
	_, err = o.UpdateDueFor(ctx, iface)
	require.ErrorIs(t, err, entity.ErrUnknownProvider)
	_, err = o.SyncRoutesFor(ctx, iface)
	require.ErrorIs(t, err, entity.ErrUnknownProvider)
	_, err = o.SyncStatusFor(ctx, iface)
	require.ErrorIs(t, err, entity.ErrUnknownProvider)
	_, err = o.DetectMissingFlightsFor(ctx, iface)
	require.ErrorIs(t, err, entity.ErrUnknownProvider)
	assert.Empty(t, updater.ifaces)
}

func TestSyncOrchestrator_FareQueueAvailable(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)
	assert.True(t, o.FareQueueAvailable())

	o.fares.queue = nil
	assert.False(t, o.FareQueueAvailable())
	assert.Equal(t, entity.FareFillStats{}, o.FillMissingFareDetail(context.Background()))
}
