package nira

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/internal/infrastructure/cache"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"

	"github.com/tidwall/gjson"
)

const (
	availabilityPath = "/cgi-bin/NRSWEB.cgi/AvailabilityJS.jsp"
	farePath         = "/cgi-bin/NRSWEB.cgi/FareJS.jsp"
	schedulePath     = "/cgi-bin/NRSWEB.cgi/FlightScheduleJS.jsp"

	// maxBodySize bounds how much of a response is read
	maxBodySize = 16 << 20
)

// Options holds the per-call timeouts of the adapter
type Options struct {
	AvailabilityTimeout time.Duration
	FareTimeout         time.Duration
	ScheduleTimeout     time.Duration
	FareCacheTTL        time.Duration
}

// Adapter talks to airline reservation systems of the NIRA family. Each
// interface is one airline; a comma separated base URL list spreads load
// over mirrors.
type Adapter struct {
	client  *http.Client
	opts    Options
	cache   repository.FareCache
	zones   *utils.ZoneResolver
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewAdapter creates a new adapter. fareCache may be nil.
func NewAdapter(opts Options, fareCache repository.FareCache, zones *utils.ZoneResolver, m *metrics.Metrics, log logger.Logger) *Adapter {
	return &Adapter{
		client:  &http.Client{},
		opts:    opts,
		cache:   fareCache,
		zones:   zones,
		metrics: m,
		logger:  log.With("provider", entity.ProviderNira),
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return entity.ProviderNira
}

// Capabilities lists what the adapter supports
func (a *Adapter) Capabilities() entity.Capabilities {
	return entity.Capabilities{
		Schedule:     true,
		Availability: true,
		FareDetail:   true,
	}
}

// ParseAvailableSeats decodes the seat count of a capacity code
func (a *Adapter) ParseAvailableSeats(code, classPrefix string) int {
	return ParseAvailableSeats(code, classPrefix)
}

// DetermineStatus decodes the sale status of a capacity code
func (a *Adapter) DetermineStatus(code, classPrefix string) string {
	return DetermineStatus(code, classPrefix)
}

// GetSchedule fetches the flight schedule of the interface's airline between
// two calendar dates, read in their own location. Schedule records carry no
// classes.
func (a *Adapter) GetSchedule(ctx context.Context, iface *entity.Interface, from, to time.Time) ([]entity.RawFlight, error) {
	params := a.authParams(iface)
	params.Set("DepartureDateFrom", from.Format(utils.DateLayout))
	params.Set("DepartureDateTo", to.Format(utils.DateLayout))

	body, err := a.get(ctx, "schedule", iface.PrimaryBaseURL()+schedulePath, params, a.opts.ScheduleTimeout)
	if err != nil {
		return nil, err
	}
	return a.parseFlights(ctx, iface, gjson.GetBytes(body, "Flights")), nil
}

// GetAvailability fetches the available flights of one route on one
// calendar date from the interface's primary base URL
func (a *Adapter) GetAvailability(ctx context.Context, iface *entity.Interface, origin, destination string, date time.Time) ([]entity.RawFlight, error) {
	params := a.authParams(iface)
	params.Set("cbSource", strings.ToUpper(origin))
	params.Set("cbTarget", strings.ToUpper(destination))
	params.Set("DepartureDate", date.Format(utils.DateLayout))
	params.Set("cbAdultQty", "1")

	body, err := a.get(ctx, "availability", iface.PrimaryBaseURL()+availabilityPath, params, a.opts.AvailabilityTimeout)
	if err != nil {
		return nil, err
	}
	return a.parseFlights(ctx, iface, gjson.GetBytes(body, "AvailableFlights")), nil
}

// GetFareDetail fetches taxes, baggage and refund rules of one class.
// Results are cached for the configured TTL.
func (a *Adapter) GetFareDetail(ctx context.Context, iface *entity.Interface, req entity.FareRequest) (*entity.RawFare, error) {
	key := cache.FareKey(a.Name(), iface.ID, req)
	if a.cache != nil {
		if fare, ok := a.cache.Get(ctx, key); ok {
			return fare, nil
		}
	}

	params := a.authParams(iface)
	params.Set("Route", strings.ToUpper(req.Origin)+"-"+strings.ToUpper(req.Destination))
	params.Set("RBD", strings.ToUpper(req.ClassCode))
	params.Set("DepartureDate", req.Date.In(a.zones.Location(ctx, req.Origin)).Format(utils.DateLayout))
	params.Set("FlightNo", req.FlightNumber)

	body, err := a.get(ctx, "fare", iface.PrimaryBaseURL()+farePath, params, a.opts.FareTimeout)
	if err != nil {
		return nil, err
	}

	fare := parseFare(body)
	if len(fare.Breakdown) == 0 && len(fare.Taxes) == 0 && len(fare.Rules) == 0 {
		err := fmt.Errorf("empty fare detail for %s %s", req.FlightNumber, req.ClassCode)
		a.logger.Warn("Fare detail returned nothing usable", "flight", req.FlightNumber, "class", req.ClassCode)
		return nil, err
	}

	if a.cache != nil && a.opts.FareCacheTTL > 0 {
		if err := a.cache.Set(ctx, key, fare, a.opts.FareCacheTTL); err != nil {
			a.logger.Warn("Failed to cache fare detail", "key", key, "error", err)
		}
	}
	return fare, nil
}

func (a *Adapter) authParams(iface *entity.Interface) url.Values {
	params := url.Values{}
	params.Set("AirLine", iface.Code)
	params.Set("UserName", iface.Username)
	params.Set("Password", iface.Password)
	return params
}

// get issues one GET with its own timeout and returns the recovered JSON body
func (a *Adapter) get(ctx context.Context, operation, endpoint string, params url.Values, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a.metrics.FetchRequests.WithLabelValues(entity.ProviderNira, operation).Inc()
	body, err := a.do(ctx, endpoint, params)
	if err != nil {
		a.metrics.FetchErrors.WithLabelValues(entity.ProviderNira, operation).Inc()
		a.logger.Error("Request failed",
			"operation", operation,
			"endpoint", endpoint,
			"route", params.Get("cbSource")+params.Get("cbTarget")+params.Get("Route"),
			"error", err)
		return nil, err
	}
	return body, nil
}

func (a *Adapter) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	body, step, err := recoverJSON(raw)
	if err != nil {
		return nil, err
	}
	if step != "utf-8" {
		a.logger.Warn("Recovered mis-encoded response", "encoding", step, "endpoint", endpoint)
	}
	return body, nil
}

// parseFlights converts a flight array into raw flights. Records whose
// departure cannot be parsed are skipped.
func (a *Adapter) parseFlights(ctx context.Context, iface *entity.Interface, list gjson.Result) []entity.RawFlight {
	var flights []entity.RawFlight
	list.ForEach(func(_, item gjson.Result) bool {
		origin := strings.ToUpper(item.Get("Origin").String())
		destination := strings.ToUpper(item.Get("Destination").String())
		originLoc := a.zones.Location(ctx, origin)

		departure, err := utils.ParseLocalDateTime(item.Get("DepartureDateTime").String(), "", originLoc)
		if err != nil {
			a.logger.Warn("Skipping flight with invalid departure",
				"flight", item.Get("FlightNo").String(), "departure", item.Get("DepartureDateTime").String())
			return true
		}

		airline := strings.ToUpper(item.Get("Airline").String())
		if airline == "" {
			airline = strings.ToUpper(iface.Code)
		}

		flight := entity.RawFlight{
			Airline:      airline,
			AirlineName:  item.Get("AirlineName").String(),
			FlightNumber: strings.TrimSpace(item.Get("FlightNo").String()),
			Origin:       origin,
			Destination:  destination,
			DepartureAt:  departure.UTC(),
			Aircraft:     item.Get("AircraftTypeCode").String(),
			AircraftName: item.Get("AircraftTypeName").String(),
			Transit:      item.Get("Transit").String(),
		}
		if arrivalStr := item.Get("ArrivalDateTime").String(); arrivalStr != "" {
			if arrival, err := utils.ParseLocalDateTime(arrivalStr, "", a.zones.Location(ctx, destination)); err == nil {
				arrival = arrival.UTC()
				flight.ArrivalAt = &arrival
			}
		}

		item.Get("ClassesStatus").ForEach(func(_, c gjson.Result) bool {
			code := strings.ToUpper(strings.TrimSpace(c.Get("FlightClass").String()))
			capacity := c.Get("Cap").String()
			flight.Classes = append(flight.Classes, entity.RawClass{
				Code:           code,
				CapacityCode:   capacity,
				AdultPrice:     c.Get("Price").Int(),
				ChildPrice:     c.Get("ChildPrice").Int(),
				InfantPrice:    c.Get("InfantPrice").Int(),
				AvailableSeats: ParseAvailableSeats(capacity, code),
				Status:         DetermineStatus(capacity, code),
			})
			return true
		})

		flights = append(flights, flight)
		return true
	})
	return flights
}

var passengerPrefixes = []struct {
	prefix string
	pax    string
}{
	{"Adult", entity.PassengerAdult},
	{"Child", entity.PassengerChild},
	{"Infant", entity.PassengerInfant},
}

func parseFare(body []byte) *entity.RawFare {
	doc := gjson.ParseBytes(body)
	fare := &entity.RawFare{}

	for _, p := range passengerPrefixes {
		total := doc.Get(p.prefix + "TotalPrice").Int()
		if total <= 0 {
			continue
		}
		base := doc.Get(p.prefix + "Fare").Int()
		var tax int64
		if base > 0 && base <= total {
			tax = total - base
		}
		fare.Breakdown = append(fare.Breakdown, entity.RawFareBreakdown{
			PassengerType: p.pax,
			BaseFare:      base,
			TotalTax:      tax,
			Total:         total,
		})
	}

	doc.Get("Taxes").ForEach(func(_, t gjson.Result) bool {
		fare.Taxes = append(fare.Taxes, entity.RawTax{
			PassengerType: paxType(t.Get("PaxType").String()),
			Code:          t.Get("Code").String(),
			Amount:        t.Get("Amount").Int(),
		})
		return true
	})

	doc.Get("Baggage").ForEach(func(_, b gjson.Result) bool {
		allowance := strings.TrimSpace(b.Get("Allowance").String())
		weight, pieces := parseAllowance(allowance)
		fare.Baggage = append(fare.Baggage, entity.RawBaggage{
			PassengerType: paxType(b.Get("PaxType").String()),
			Allowance:     allowance,
			WeightKg:      weight,
			Pieces:        pieces,
		})
		return true
	})

	doc.Get("CRCNRules").ForEach(func(_, r gjson.Result) bool {
		text := strings.TrimSpace(r.Get("Text").String())
		if text == "" {
			return true
		}
		fare.Rules = append(fare.Rules, entity.RawRule{
			Text:        text,
			Percent:     int(r.Get("Percent").Int()),
			HoursBefore: int(r.Get("Hours").Int()),
		})
		return true
	})

	return fare
}

func paxType(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "CHD", "CHILD":
		return entity.PassengerChild
	case "INF", "INFANT":
		return entity.PassengerInfant
	default:
		return entity.PassengerAdult
	}
}

// parseAllowance reads "20K"/"20KG" as a weight and "2PC"/"2P" as pieces
func parseAllowance(allowance string) (weightKg, pieces int) {
	s := strings.ToUpper(strings.ReplaceAll(allowance, " ", ""))
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n := utils.ParseInt(s[:end])
	switch unit := s[end:]; {
	case strings.HasPrefix(unit, "K"), unit == "":
		return n, 0
	case strings.HasPrefix(unit, "P"):
		return 0, n
	}
	return 0, 0
}
