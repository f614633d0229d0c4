package entity

import "time"

// FlightBundle is a normalized flight with the rows derived from it, keyed by
// natural key and ready for persistence
type FlightBundle struct {
	Flight  Flight
	Detail  FlightDetail
	Classes []ClassBundle
}

// ClassBundle is a normalized class with optional inline fare detail
type ClassBundle struct {
	Class FlightClass
	Fare  *RawFare
}

// SaveResult reports what a bundle save wrote
type SaveResult struct {
	FlightsNew     int
	FlightsUpdated int
	ClassesNew     int
	ClassesUpdated int
	NewClasses     []NewClass
}

// NewClass identifies a freshly inserted flight class
type NewClass struct {
	ClassID      uint
	FlightID     uint
	RouteID      uint
	ClassCode    string
	FlightNumber string
	DepartureAt  time.Time
}
