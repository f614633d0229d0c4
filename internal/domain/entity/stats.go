package entity

import "time"

// UpdateStats is returned by the flight updaters
type UpdateStats struct {
	Provider        string        `json:"provider"`
	InterfaceID     uint          `json:"interfaceId"`
	Period          int           `json:"period,omitempty"`
	Routes          int           `json:"routes"`
	Tasks           int           `json:"tasks"`
	FlightsFetched  int           `json:"flightsFetched"`
	FlightsNew      int           `json:"flightsNew"`
	FlightsUpdated  int           `json:"flightsUpdated"`
	ClassesNew      int           `json:"classesNew"`
	ClassesUpdated  int           `json:"classesUpdated"`
	ClassesDropped  int           `json:"classesDropped"`
	FareTasksQueued int           `json:"fareTasksQueued"`
	Errors          int           `json:"errors"`
	Duration        time.Duration `json:"duration"`
}

// Add accumulates other into s
func (s *UpdateStats) Add(other UpdateStats) {
	s.Routes += other.Routes
	s.Tasks += other.Tasks
	s.FlightsFetched += other.FlightsFetched
	s.FlightsNew += other.FlightsNew
	s.FlightsUpdated += other.FlightsUpdated
	s.ClassesNew += other.ClassesNew
	s.ClassesUpdated += other.ClassesUpdated
	s.ClassesDropped += other.ClassesDropped
	s.FareTasksQueued += other.FareTasksQueued
	s.Errors += other.Errors
}

// StatusSyncStats is returned by the status sync job
type StatusSyncStats struct {
	Provider    string `json:"provider"`
	InterfaceID uint   `json:"interfaceId"`
	Flights     int    `json:"flights"`
	Updated     int    `json:"updated"`
	Open        int    `json:"open"`
	Closed      int    `json:"closed"`
	Errors      int    `json:"errors"`
}

// CleanupStats is returned by the past-flight cleanup
type CleanupStats struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted int64     `json:"deleted"`
	Errors  int       `json:"errors"`
}

// MissingStats is returned by the missing-flight detector
type MissingStats struct {
	Provider    string `json:"provider"`
	InterfaceID uint   `json:"interfaceId"`
	Checked     int    `json:"checked"`
	Groups      int    `json:"groups"`
	Missing     int    `json:"missing"`
	Deleted     int    `json:"deleted"`
	Reset       int    `json:"reset"`
	Errors      int    `json:"errors"`
}

// FareFillStats is returned when missing fare details are queued
type FareFillStats struct {
	Candidates int `json:"candidates"`
	Queued     int `json:"queued"`
	Errors     int `json:"errors"`
}
