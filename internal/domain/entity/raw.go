package entity

import "time"

// Capabilities lists what a provider adapter can do
type Capabilities struct {
	Schedule     bool
	Availability bool
	FareDetail   bool
	BulkCharter  bool
}

// RawFlight is a provider record normalized into the common shape
type RawFlight struct {
	Airline      string
	AirlineName  string
	FlightNumber string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	ArrivalAt    *time.Time
	Aircraft     string
	AircraftName string
	Transit      string
	// Weekdays is set by providers that send availability flags directly
	Weekdays *Weekdays
	Classes  []RawClass
}

// RawClass is one class of a raw flight after the provider decoded its
// capacity code
type RawClass struct {
	Code           string
	CapacityCode   string
	AdultPrice     int64
	ChildPrice     int64
	InfantPrice    int64
	AvailableSeats int
	Status         string
	Fare           *RawFare
}

// RawFare is the fare detail of one class
type RawFare struct {
	Breakdown []RawFareBreakdown `json:"breakdown"`
	Taxes     []RawTax           `json:"taxes"`
	Baggage   []RawBaggage       `json:"baggage"`
	Rules     []RawRule          `json:"rules"`
}

// RawFareBreakdown is a price split for one passenger type
type RawFareBreakdown struct {
	PassengerType string `json:"passengerType"`
	BaseFare      int64  `json:"baseFare"`
	TotalTax      int64  `json:"totalTax"`
	Total         int64  `json:"total"`
}

// RawTax is one itemized tax
type RawTax struct {
	PassengerType string `json:"passengerType"`
	Code          string `json:"code"`
	Amount        int64  `json:"amount"`
}

// RawBaggage is one baggage allowance
type RawBaggage struct {
	PassengerType string `json:"passengerType"`
	Allowance     string `json:"allowance"`
	WeightKg      int    `json:"weightKg"`
	Pieces        int    `json:"pieces"`
}

// RawRule is one refund penalty rule
type RawRule struct {
	Text        string `json:"text"`
	Percent     int    `json:"percent"`
	HoursBefore int    `json:"hoursBefore"`
}

// FareRequest identifies the class a fare detail fetch is for
type FareRequest struct {
	Origin       string
	Destination  string
	ClassCode    string
	Date         time.Time
	FlightNumber string
}
