package entity

import "time"

// Flight class statuses
const (
	ClassStatusActive    = "active"
	ClassStatusFull      = "full"
	ClassStatusClosed    = "closed"
	ClassStatusCancelled = "cancelled"
)

// Passenger types
const (
	PassengerAdult  = "adult"
	PassengerChild  = "child"
	PassengerInfant = "infant"
)

// MissingDeleteThreshold is the missing_count at which the next absence deletes the flight
const MissingDeleteThreshold = 2

// Flight is one departure of a route
type Flight struct {
	ID              uint
	RouteID         uint
	FlightNumber    string
	DepartureAt     time.Time
	Aircraft        string
	MissingCount    int
	IsOpen          bool
	OpenClassCount  int
	MinPrice        int64
	MinCapacity     int
	FlightScore     int
	NextCheckAt     *time.Time
	StatusCheckedAt *time.Time
}

// FlightDetail holds non-scheduling metadata of a flight
type FlightDetail struct {
	FlightID     uint
	ArrivalAt    *time.Time
	Transit      string
	AircraftName string
	AirlineName  string
}

// FlightClass is one fare class of a flight
type FlightClass struct {
	ID             uint
	FlightID       uint
	ClassCode      string
	CapacityCode   string
	AdultPrice     int64
	ChildPrice     int64
	InfantPrice    int64
	AvailableSeats int
	Status         string
	FareFetchedAt  *time.Time
}

// IsOpen reports whether the class can be sold
func (c *FlightClass) IsOpen() bool {
	return c.Status == ClassStatusActive && c.AvailableSeats > 0
}

// FareBreakdown is the per passenger type price split of a class
type FareBreakdown struct {
	FlightClassID uint
	PassengerType string
	BaseFare      int64
	TotalTax      int64
	Total         int64
}

// Tax is one itemized tax of a class
type Tax struct {
	FlightClassID uint
	PassengerType string
	Code          string
	Amount        int64
}

// Baggage is the allowance of a class for one passenger type
type Baggage struct {
	FlightClassID uint
	PassengerType string
	Allowance     string
	WeightKg      int
	Pieces        int
}

// Rule is one refund penalty rule of a class
type Rule struct {
	FlightClassID uint
	Text          string
	Percent       int
	HoursBefore   int
}

// FlightRef is an upcoming flight joined with its route, as read back for
// status sync, missing detection and due rechecks
type FlightRef struct {
	Flight      Flight
	InterfaceID uint
	Iata        string
	Origin      string
	Destination string
}

// ClassRef is a flight class awaiting fare detail
type ClassRef struct {
	ClassID      uint
	ClassCode    string
	FlightNumber string
	DepartureAt  time.Time
	InterfaceID  uint
	Provider     string
	Origin       string
	Destination  string
}

// FlightStatus is the status-sync projection written back to a flight
type FlightStatus struct {
	RouteID         uint
	FlightNumber    string
	DepartureAt     time.Time
	IsOpen          bool
	OpenClassCount  int
	MinPrice        int64
	MinCapacity     int
	FlightScore     int
	NextCheckAt     *time.Time
	StatusCheckedAt time.Time
}
