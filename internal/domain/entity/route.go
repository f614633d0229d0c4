package entity

import "time"

// Route is an origin/destination pair served through one provider interface
type Route struct {
	ID          uint
	Provider    string
	InterfaceID uint
	Iata        string
	Origin      string
	Destination string
	Weekdays    Weekdays
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Weekdays holds availability flags indexed by time.Weekday (Sunday = 0)
type Weekdays [7]bool

// On reports whether the flag for the given weekday is set
func (w Weekdays) On(day time.Weekday) bool {
	return w[int(day)%7]
}

// Any reports whether at least one weekday is set
func (w Weekdays) Any() bool {
	for _, on := range w {
		if on {
			return true
		}
	}
	return false
}

// Merge ORs other into w
func (w *Weekdays) Merge(other Weekdays) {
	for i, on := range other {
		if on {
			w[i] = true
		}
	}
}

// RouteKey identifies a route inside one interface
type RouteKey struct {
	Iata        string
	Origin      string
	Destination string
}

// RouteRecord is the analyzer output for one route key
type RouteRecord struct {
	Key      RouteKey
	Weekdays Weekdays
}

// RouteSyncResult is returned by the route sync service
type RouteSyncResult struct {
	Provider    string `json:"provider"`
	InterfaceID uint   `json:"interfaceId"`
	Success     bool   `json:"success"`
	RouteCount  int    `json:"routeCount"`
	Deleted     int    `json:"deleted"`
	Errors      int    `json:"errors"`
	Message     string `json:"message"`
}
