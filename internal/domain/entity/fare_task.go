package entity

import "time"

// FareTask is a unit of fare-detail refinement work
type FareTask struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	InterfaceID   uint      `json:"interfaceId"`
	FlightClassID uint      `json:"flightClassId"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	ClassCode     string    `json:"classCode"`
	FlightNumber  string    `json:"flightNumber"`
	DepartureAt   time.Time `json:"departureAt"`
	EnqueuedAt    time.Time `json:"enqueuedAt"`
}

// DeadLetter records a task that exhausted its retry budget
type DeadLetter struct {
	TaskID    string    `bson:"taskId"`
	Kind      string    `bson:"kind"`
	Provider  string    `bson:"provider"`
	Payload   string    `bson:"payload"`
	Error     string    `bson:"error"`
	Attempts  int       `bson:"attempts"`
	FailedAt  time.Time `bson:"failedAt"`
	CreatedAt time.Time `bson:"createdAt"`
}
