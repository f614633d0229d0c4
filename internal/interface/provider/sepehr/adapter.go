package sepehr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"
	"flightsync-service/pkg/utils"
)

const (
	schedulePath = "/api/Charter/GetSchedule"
	maxBodySize  = 64 << 20
)

// ClientProvider hands out authenticated HTTP clients for an interface
type ClientProvider interface {
	HTTPClient(iface *entity.Interface, timeout time.Duration) (*http.Client, error)
}

// Adapter talks to the Sepehr charter aggregator. One bulk schedule call
// returns every flight of a date range with classes and fares inline.
type Adapter struct {
	clients ClientProvider
	timeout time.Duration
	zones   *utils.ZoneResolver
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewAdapter creates a new adapter
func NewAdapter(clients ClientProvider, timeout time.Duration, zones *utils.ZoneResolver, m *metrics.Metrics, log logger.Logger) *Adapter {
	return &Adapter{
		clients: clients,
		timeout: timeout,
		zones:   zones,
		metrics: m,
		logger:  log.With("provider", entity.ProviderSepehr),
	}
}

type scheduleRequest struct {
	FromDate string `json:"FromDate"`
	ToDate   string `json:"ToDate"`
}

type scheduleResponse struct {
	Success bool            `json:"Success"`
	Message string          `json:"Message"`
	Flights []charterFlight `json:"Flights"`
}

type charterFlight struct {
	Airline       string         `json:"Airline"`
	AirlineName   string         `json:"AirlineName"`
	FlightNumber  string         `json:"FlightNumber"`
	Origin        string         `json:"Origin"`
	Destination   string         `json:"Destination"`
	DepartureDate string         `json:"DepartureDate"`
	DepartureTime string         `json:"DepartureTime"`
	ArrivalDate   string         `json:"ArrivalDate"`
	ArrivalTime   string         `json:"ArrivalTime"`
	Aircraft      string         `json:"Aircraft"`
	AircraftName  string         `json:"AircraftName"`
	Transit       string         `json:"Transit"`
	WeekDays      *weekDays      `json:"WeekDays"`
	Classes       []charterClass `json:"Classes"`
}

type weekDays struct {
	Sat bool `json:"Sat"`
	Sun bool `json:"Sun"`
	Mon bool `json:"Mon"`
	Tue bool `json:"Tue"`
	Wed bool `json:"Wed"`
	Thu bool `json:"Thu"`
	Fri bool `json:"Fri"`
}

type charterClass struct {
	ClassCode   string          `json:"ClassCode"`
	Capacity    string          `json:"Capacity"`
	AdultFare   int64           `json:"AdultFare"`
	ChildFare   int64           `json:"ChildFare"`
	InfantFare  int64           `json:"InfantFare"`
	Breakdown   []charterPrice  `json:"FareBreakdown"`
	Taxes       []charterTax    `json:"Taxes"`
	Baggage     []charterBag    `json:"Baggage"`
	RefundRules []charterRefund `json:"RefundRules"`
}

type charterPrice struct {
	PassengerType string `json:"PassengerType"`
	BaseFare      int64  `json:"BaseFare"`
	Tax           int64  `json:"Tax"`
	Total         int64  `json:"Total"`
}

type charterTax struct {
	PassengerType string `json:"PassengerType"`
	Code          string `json:"Code"`
	Amount        int64  `json:"Amount"`
}

type charterBag struct {
	PassengerType string `json:"PassengerType"`
	Allowance     string `json:"Allowance"`
	WeightKg      int    `json:"WeightKg"`
	Pieces        int    `json:"Pieces"`
}

type charterRefund struct {
	Text        string `json:"Text"`
	Percent     int    `json:"Percent"`
	HoursBefore int    `json:"HoursBefore"`
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return entity.ProviderSepehr
}

// Capabilities lists what the adapter supports
func (a *Adapter) Capabilities() entity.Capabilities {
	return entity.Capabilities{
		Schedule:     true,
		Availability: true,
		BulkCharter:  true,
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

// GetSchedule fetches every charter flight departing between from and to,
// both inclusive calendar dates read in their own location
func (a *Adapter) GetSchedule(ctx context.Context, iface *entity.Interface, from, to time.Time) ([]entity.RawFlight, error) {
	payload := scheduleRequest{
		FromDate: from.Format(utils.DateLayout),
		ToDate:   to.Format(utils.DateLayout),
	}

	a.metrics.FetchRequests.WithLabelValues(entity.ProviderSepehr, "schedule").Inc()
	resp, err := a.fetch(ctx, iface, payload)
	if err != nil {
		a.metrics.FetchErrors.WithLabelValues(entity.ProviderSepehr, "schedule").Inc()
		a.logger.Error("Schedule request failed",
			"interface_id", iface.ID,
			"from", payload.FromDate,
			"to", payload.ToDate,
			"error", err)
		return nil, err
	}

	flights := make([]entity.RawFlight, 0, len(resp.Flights))
	for _, cf := range resp.Flights {
		flight, err := a.toRawFlight(ctx, iface, cf)
		if err != nil {
			a.logger.Warn("Skipping charter flight", "flight", cf.FlightNumber, "error", err)
			continue
		}
		flights = append(flights, flight)
	}
	return flights, nil
}

// GetAvailability filters the bulk schedule of one date down to a route
func (a *Adapter) GetAvailability(ctx context.Context, iface *entity.Interface, origin, destination string, date time.Time) ([]entity.RawFlight, error) {
	all, err := a.GetSchedule(ctx, iface, date, date)
	if err != nil {
		return nil, err
	}
	origin = strings.ToUpper(origin)
	destination = strings.ToUpper(destination)

	var flights []entity.RawFlight
	for _, f := range all {
		if f.Origin == origin && f.Destination == destination {
			flights = append(flights, f)
		}
	}
	return flights, nil
}

// GetFareDetail is not offered by Sepehr; fares arrive with the schedule
func (a *Adapter) GetFareDetail(_ context.Context, _ *entity.Interface, _ entity.FareRequest) (*entity.RawFare, error) {
	return nil, entity.ErrCapabilityUnsupported
}

func (a *Adapter) fetch(ctx context.Context, iface *entity.Interface, payload scheduleRequest) (*scheduleResponse, error) {
	client, err := a.clients.HTTPClient(iface, a.timeout)
	if err != nil {
		return nil, err
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, iface.PrimaryBaseURL()+schedulePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var out scheduleResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Success && len(out.Flights) == 0 && out.Message != "" {
		return nil, fmt.Errorf("upstream error: %s", out.Message)
	}
	return &out, nil
}

func (a *Adapter) toRawFlight(ctx context.Context, iface *entity.Interface, cf charterFlight) (entity.RawFlight, error) {
	origin := strings.ToUpper(strings.TrimSpace(cf.Origin))
	destination := strings.ToUpper(strings.TrimSpace(cf.Destination))

	departure, err := utils.ParseLocalDateTime(cf.DepartureDate, cf.DepartureTime, a.zones.Location(ctx, origin))
	if err != nil {
		return entity.RawFlight{}, err
	}

	airline := strings.ToUpper(strings.TrimSpace(cf.Airline))
	if airline == "" {
		airline = strings.ToUpper(iface.Code)
	}

	flight := entity.RawFlight{
		Airline:      airline,
		AirlineName:  cf.AirlineName,
		FlightNumber: strings.TrimSpace(cf.FlightNumber),
		Origin:       origin,
		Destination:  destination,
		DepartureAt:  departure.UTC(),
		Aircraft:     cf.Aircraft,
		AircraftName: cf.AircraftName,
		Transit:      cf.Transit,
	}

	if cf.ArrivalTime != "" {
		arrivalDate := cf.ArrivalDate
		if arrivalDate == "" {
			arrivalDate = cf.DepartureDate
		}
		if arrival, err := utils.ParseLocalDateTime(arrivalDate, cf.ArrivalTime, a.zones.Location(ctx, destination)); err == nil {
			if arrival.Before(departure) && cf.ArrivalDate == "" {
				arrival = arrival.AddDate(0, 0, 1)
			}
			arrival = arrival.UTC()
			flight.ArrivalAt = &arrival
		}
	}

	if cf.WeekDays != nil {
		flight.Weekdays = &entity.Weekdays{
			cf.WeekDays.Sun, cf.WeekDays.Mon, cf.WeekDays.Tue, cf.WeekDays.Wed,
			cf.WeekDays.Thu, cf.WeekDays.Fri, cf.WeekDays.Sat,
		}
	}

	for _, cc := range cf.Classes {
		code := strings.ToUpper(strings.TrimSpace(cc.ClassCode))
		flight.Classes = append(flight.Classes, entity.RawClass{
			Code:           code,
			CapacityCode:   cc.Capacity,
			AdultPrice:     cc.AdultFare,
			ChildPrice:     cc.ChildFare,
			InfantPrice:    cc.InfantFare,
			AvailableSeats: ParseAvailableSeats(cc.Capacity, code),
			Status:         DetermineStatus(cc.Capacity, code),
			Fare:           inlineFare(cc),
		})
	}
	return flight, nil
}

// inlineFare converts the fare children of a class; nil when none were sent
func inlineFare(cc charterClass) *entity.RawFare {
	if len(cc.Breakdown) == 0 && len(cc.Taxes) == 0 && len(cc.Baggage) == 0 && len(cc.RefundRules) == 0 {
		return nil
	}

	fare := &entity.RawFare{}
	for _, p := range cc.Breakdown {
		fare.Breakdown = append(fare.Breakdown, entity.RawFareBreakdown{
			PassengerType: paxType(p.PassengerType),
			BaseFare:      p.BaseFare,
			TotalTax:      p.Tax,
			Total:         p.Total,
		})
	}
	for _, t := range cc.Taxes {
		fare.Taxes = append(fare.Taxes, entity.RawTax{
			PassengerType: paxType(t.PassengerType),
			Code:          t.Code,
			Amount:        t.Amount,
		})
	}
	for _, b := range cc.Baggage {
		fare.Baggage = append(fare.Baggage, entity.RawBaggage{
			PassengerType: paxType(b.PassengerType),
			Allowance:     b.Allowance,
			WeightKg:      b.WeightKg,
			Pieces:        b.Pieces,
		})
	}
	for _, r := range cc.RefundRules {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		fare.Rules = append(fare.Rules, entity.RawRule{
			Text:        strings.TrimSpace(r.Text),
			Percent:     r.Percent,
			HoursBefore: r.HoursBefore,
		})
	}
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
