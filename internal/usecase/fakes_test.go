package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tehran  = time.FixedZone("IRST", 3*3600+1800)
	errDown = errors.New("upstream unavailable")
)

func testMetrics() *metrics.Metrics {
	return metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
}

func testZones() *utils.ZoneResolver {
	return utils.NewZoneResolver(nil, tehran, logger.NewNopLogger())
}

// fakeAdapter serves canned flights and records the calls it gets
type fakeAdapter struct {
	name         string
	caps         entity.Capabilities
	availability func(baseURL, origin, destination string, date time.Time) ([]entity.RawFlight, error)
	schedule     func(from, to time.Time) ([]entity.RawFlight, error)
	fare         func(req entity.FareRequest) (*entity.RawFare, error)

	mu         sync.Mutex
	availCalls []availCall
	schedCalls int
	fareCalls  int
}

type availCall struct {
	baseURL     string
	origin      string
	destination string
	date        string
}

func (a *fakeAdapter) Name() string                      { return a.name }
func (a *fakeAdapter) Capabilities() entity.Capabilities { return a.caps }

func (a *fakeAdapter) GetSchedule(_ context.Context, _ *entity.Interface, from, to time.Time) ([]entity.RawFlight, error) {
	a.mu.Lock()
	a.schedCalls++
	a.mu.Unlock()
	if a.schedule == nil {
		return nil, nil
	}
	return a.schedule(from, to)
}

func (a *fakeAdapter) GetAvailability(_ context.Context, iface *entity.Interface, origin, destination string, date time.Time) ([]entity.RawFlight, error) {
	a.mu.Lock()
	a.availCalls = append(a.availCalls, availCall{
		baseURL:     iface.BaseURL,
		origin:      origin,
		destination: destination,
		date:        date.Format(utils.DateLayout),
	})
	a.mu.Unlock()
	if a.availability == nil {
		return nil, nil
	}
	return a.availability(iface.BaseURL, origin, destination, date)
}

func (a *fakeAdapter) GetFareDetail(_ context.Context, _ *entity.Interface, req entity.FareRequest) (*entity.RawFare, error) {
	a.mu.Lock()
	a.fareCalls++
	a.mu.Unlock()
	if a.fare == nil {
		return nil, entity.ErrCapabilityUnsupported
	}
	return a.fare(req)
}

func (a *fakeAdapter) ParseAvailableSeats(string, string) int { return 0 }
func (a *fakeAdapter) DetermineStatus(string, string) string  { return entity.ClassStatusClosed }

func (a *fakeAdapter) calls() []availCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]availCall(nil), a.availCalls...)
}

// fakeAnalyzer returns fixed records
type fakeAnalyzer struct {
	records map[entity.RouteKey]*entity.RouteRecord
}

func (a *fakeAnalyzer) Analyze([]entity.RawFlight) map[entity.RouteKey]*entity.RouteRecord {
	return a.records
}

// mapRouter is a ProviderRouter over a plain map
type mapRouter struct {
	handlers map[string]*ProviderHandler
	order    []string
}

func newMapRouter(handlers ...*ProviderHandler) *mapRouter {
	r := &mapRouter{handlers: make(map[string]*ProviderHandler)}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

func (r *mapRouter) Register(h *ProviderHandler) {
	if _, ok := r.handlers[h.Provider()]; !ok {
		r.order = append(r.order, h.Provider())
	}
	r.handlers[h.Provider()] = h
}

func (r *mapRouter) Get(provider string) (*ProviderHandler, error) {
	h, ok := r.handlers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownProvider, provider)
	}
	return h, nil
}

func (r *mapRouter) Providers() []string { return r.order }

// memRouteRepo keeps routes in memory
type memRouteRepo struct {
	mu         sync.Mutex
	routes     []*entity.Route
	reconciled [][]*entity.Route
	nextID     uint
}

func (r *memRouteRepo) FindByInterface(_ context.Context, interfaceID uint) ([]*entity.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Route
	for _, route := range r.routes {
		if route.InterfaceID == interfaceID {
			out = append(out, route)
		}
	}
	return out, nil
}

func (r *memRouteRepo) Reconcile(_ context.Context, interfaceID uint, routes []*entity.Route) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled = append(r.reconciled, routes)

	wanted := make(map[entity.RouteKey]*entity.Route, len(routes))
	for _, route := range routes {
		wanted[entity.RouteKey{Iata: route.Iata, Origin: route.Origin, Destination: route.Destination}] = route
	}

	deleted := 0
	var kept []*entity.Route
	for _, stored := range r.routes {
		if stored.InterfaceID != interfaceID {
			kept = append(kept, stored)
			continue
		}
		key := entity.RouteKey{Iata: stored.Iata, Origin: stored.Origin, Destination: stored.Destination}
		if w, ok := wanted[key]; ok {
			stored.Weekdays = w.Weekdays
			kept = append(kept, stored)
			delete(wanted, key)
			continue
		}
		deleted++
	}
	for _, route := range routes {
		key := entity.RouteKey{Iata: route.Iata, Origin: route.Origin, Destination: route.Destination}
		if _, ok := wanted[key]; ok {
			r.nextID++
			route.ID = 1000 + r.nextID
			kept = append(kept, route)
		}
	}
	r.routes = kept
	return deleted, nil
}

// memFlightRepo is an in-memory FlightRepository keyed like the real tables
type memFlightRepo struct {
	mu      sync.Mutex
	routes  *memRouteRepo
	flights map[flightKey]*entity.Flight
	classes map[uint]map[string]*entity.FlightClass
	fares   map[uint]*entity.RawFare
	nextID  uint
	saveErr error
	saves   int
}

func newMemFlightRepo(routes *memRouteRepo) *memFlightRepo {
	return &memFlightRepo{
		routes:  routes,
		flights: make(map[flightKey]*entity.Flight),
		classes: make(map[uint]map[string]*entity.FlightClass),
		fares:   make(map[uint]*entity.RawFare),
	}
}

func (r *memFlightRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memFlightRepo) route(id uint) *entity.Route {
	for _, route := range r.routes.routes {
		if route.ID == id {
			return route
		}
	}
	return nil
}

func (r *memFlightRepo) SaveBundles(_ context.Context, bundles []entity.FlightBundle) (entity.SaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return entity.SaveResult{}, r.saveErr
	}

	var result entity.SaveResult
	for i := range bundles {
		b := &bundles[i]
		key := keyOf(&b.Flight)
		stored, ok := r.flights[key]
		if !ok {
			f := b.Flight
			f.ID = r.id()
			r.flights[key] = &f
			r.classes[f.ID] = make(map[string]*entity.FlightClass)
			stored = &f
			result.FlightsNew++
		} else {
			id, score, next, checked := stored.ID, stored.FlightScore, stored.NextCheckAt, stored.StatusCheckedAt
			*stored = b.Flight
			stored.ID, stored.FlightScore, stored.NextCheckAt, stored.StatusCheckedAt = id, score, next, checked
			result.FlightsUpdated++
		}
		stored.MissingCount = 0

		for j := range b.Classes {
			c := b.Classes[j].Class
			c.FlightID = stored.ID
			if existing, ok := r.classes[stored.ID][c.ClassCode]; ok {
				c.ID, c.FareFetchedAt = existing.ID, existing.FareFetchedAt
				result.ClassesUpdated++
			} else {
				c.ID = r.id()
				result.ClassesNew++
				result.NewClasses = append(result.NewClasses, entity.NewClass{
					ClassID:      c.ID,
					FlightID:     stored.ID,
					RouteID:      stored.RouteID,
					ClassCode:    c.ClassCode,
					FlightNumber: stored.FlightNumber,
					DepartureAt:  stored.DepartureAt,
				})
			}
			if fare := b.Classes[j].Fare; fare != nil {
				r.fares[c.ID] = fare
				now := time.Now()
				c.FareFetchedAt = &now
			}
			r.classes[stored.ID][c.ClassCode] = &c
		}
	}
	return result, nil
}

func (r *memFlightRepo) refs(interfaceID uint, keep func(*entity.Flight) bool) []*entity.FlightRef {
	var out []*entity.FlightRef
	for _, f := range r.flights {
		route := r.route(f.RouteID)
		if route == nil || route.InterfaceID != interfaceID || !keep(f) {
			continue
		}
		out = append(out, &entity.FlightRef{
			Flight:      *f,
			InterfaceID: route.InterfaceID,
			Iata:        route.Iata,
			Origin:      route.Origin,
			Destination: route.Destination,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Flight.DepartureAt.Equal(out[j].Flight.DepartureAt) {
			return out[i].Flight.DepartureAt.Before(out[j].Flight.DepartureAt)
		}
		return out[i].Flight.ID < out[j].Flight.ID
	})
	return out
}

func (r *memFlightRepo) FindUpcoming(_ context.Context, interfaceID uint, from time.Time) ([]*entity.FlightRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs(interfaceID, func(f *entity.Flight) bool { return !f.DepartureAt.Before(from) }), nil
}

func (r *memFlightRepo) FindDue(_ context.Context, interfaceID uint, now time.Time) ([]*entity.FlightRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs(interfaceID, func(f *entity.Flight) bool {
		return !f.DepartureAt.Before(now) && f.NextCheckAt != nil && !f.NextCheckAt.After(now)
	}), nil
}

func (r *memFlightRepo) ClassesByFlight(_ context.Context, flightIDs []uint) (map[uint][]*entity.FlightClass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint][]*entity.FlightClass)
	for _, id := range flightIDs {
		for _, c := range r.classes[id] {
			cp := *c
			out[id] = append(out[id], &cp)
		}
	}
	return out, nil
}

func (r *memFlightRepo) UpdateStatuses(_ context.Context, statuses []entity.FlightStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for _, s := range statuses {
		f, ok := r.flights[flightKey{RouteID: s.RouteID, FlightNumber: s.FlightNumber, Departure: s.DepartureAt.Unix()}]
		if !ok {
			continue
		}
		checked := s.StatusCheckedAt
		f.IsOpen = s.IsOpen
		f.OpenClassCount = s.OpenClassCount
		f.MinPrice = s.MinPrice
		f.MinCapacity = s.MinCapacity
		f.FlightScore = s.FlightScore
		f.NextCheckAt = s.NextCheckAt
		f.StatusCheckedAt = &checked
		updated++
	}
	return updated, nil
}

func (r *memFlightRepo) byID(id uint) *entity.Flight {
	for _, f := range r.flights {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (r *memFlightRepo) MarkMissing(_ context.Context, flightIDs []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range flightIDs {
		if f := r.byID(id); f != nil {
			f.MissingCount++
			f.IsOpen = false
			f.OpenClassCount = 0
		}
	}
	return nil
}

func (r *memFlightRepo) ResetMissing(_ context.Context, flightIDs []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range flightIDs {
		if f := r.byID(id); f != nil {
			f.MissingCount = 0
		}
	}
	return nil
}

func (r *memFlightRepo) DeleteFlights(_ context.Context, flightIDs []uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range flightIDs {
		for key, f := range r.flights {
			if f.ID == id {
				delete(r.flights, key)
				delete(r.classes, id)
				deleted++
			}
		}
	}
	return deleted, nil
}

func (r *memFlightRepo) DeleteDepartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	var ids []uint
	for _, f := range r.flights {
		if f.DepartureAt.Before(cutoff) {
			ids = append(ids, f.ID)
		}
	}
	r.mu.Unlock()
	return r.DeleteFlights(ctx, ids)
}

func (r *memFlightRepo) ClassesMissingFare(_ context.Context, providers []string, from time.Time, limit int) ([]*entity.ClassRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[string]bool, len(providers))
	for _, p := range providers {
		allowed[p] = true
	}

	var out []*entity.ClassRef
	for _, f := range r.flights {
		route := r.route(f.RouteID)
		if route == nil || !allowed[route.Provider] || f.DepartureAt.Before(from) {
			continue
		}
		for _, c := range r.classes[f.ID] {
			if c.FareFetchedAt != nil {
				continue
			}
			out = append(out, &entity.ClassRef{
				ClassID:      c.ID,
				ClassCode:    c.ClassCode,
				FlightNumber: f.FlightNumber,
				DepartureAt:  f.DepartureAt,
				InterfaceID:  route.InterfaceID,
				Provider:     route.Provider,
				Origin:       route.Origin,
				Destination:  route.Destination,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memFlightRepo) SaveFareDetail(_ context.Context, classID uint, fare *entity.RawFare, fetchedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fares[classID] = fare
	for _, classes := range r.classes {
		for _, c := range classes {
			if c.ID == classID {
				c.FareFetchedAt = &fetchedAt
			}
		}
	}
	return nil
}

func (r *memFlightRepo) all() []entity.Flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memFlightRepo) classCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, classes := range r.classes {
		n += len(classes)
	}
	return n
}

// memQueue collects enqueued tasks
type memQueue struct {
	mu    sync.Mutex
	tasks []*entity.FareTask
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, task *entity.FareTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// memInterfaceRepo serves interfaces from a slice
type memInterfaceRepo struct {
	ifaces []*entity.Interface
}

func (r *memInterfaceRepo) ByProviderAndCode(_ context.Context, provider, code string) (*entity.Interface, error) {
	for _, i := range r.ifaces {
		if i.Provider == provider && i.IsActive && (code == "" || strings.EqualFold(i.Code, code)) {
			return i, nil
		}
	}
	return nil, entity.ErrInterfaceNotFound
}

func (r *memInterfaceRepo) AllActiveForProvider(_ context.Context, provider string) ([]*entity.Interface, error) {
	var out []*entity.Interface
	for _, i := range r.ifaces {
		if i.Provider == provider && i.IsActive {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *memInterfaceRepo) ByID(_ context.Context, id uint) (*entity.Interface, error) {
	for _, i := range r.ifaces {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, entity.ErrInterfaceNotFound
}

// memDeadLetters collects dead letters
type memDeadLetters struct {
	mu      sync.Mutex
	letters []*entity.DeadLetter
}

func (d *memDeadLetters) Save(_ context.Context, letter *entity.DeadLetter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.letters = append(d.letters, letter)
	return nil
}

// rawFlight builds a provider flight departing at local clock on day
func rawFlight(airline, number, origin, destination string, departure time.Time, classes ...entity.RawClass) entity.RawFlight {
	return entity.RawFlight{
		Airline:      airline,
		FlightNumber: number,
		Origin:       origin,
		Destination:  destination,
		DepartureAt:  departure,
		Classes:      classes,
	}
}

func openClass(code string, price int64, seats int) entity.RawClass {
	return entity.RawClass{
		Code:           code,
		CapacityCode:   fmt.Sprintf("%s%d", code, seats),
		AdultPrice:     price,
		AvailableSeats: seats,
		Status:         entity.ClassStatusActive,
	}
}

func allWeek() entity.Weekdays {
	return entity.Weekdays{true, true, true, true, true, true, true}
}

// seedFlight stores a normalized flight of route and returns its stored copy
func seedFlight(repo *memFlightRepo, route *entity.Route, number string, departure time.Time, classes ...entity.RawClass) *entity.Flight {
	raw := rawFlight(route.Iata, number, route.Origin, route.Destination, departure, classes...)
	b, _ := buildBundle(route, &raw)
	if _, err := repo.SaveBundles(context.Background(), []entity.FlightBundle{b}); err != nil {
		panic(err)
	}
	return repo.flights[keyOf(&b.Flight)]
}
