package sepehr

import (
	"context"
	"strings"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/pkg/utils"
)

// Analyzer builds the route catalog from the charter schedule. Weekday flags
// sent with each flight are ORed; flights without flags contribute the
// weekday of their departure.
type Analyzer struct {
	zones *utils.ZoneResolver
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(zones *utils.ZoneResolver) *Analyzer {
	return &Analyzer{zones: zones}
}

// Analyze folds flights into one record per (airline, origin, destination)
func (a *Analyzer) Analyze(flights []entity.RawFlight) map[entity.RouteKey]*entity.RouteRecord {
	records := make(map[entity.RouteKey]*entity.RouteRecord)
	for _, f := range flights {
		if f.Origin == "" || f.Destination == "" {
			continue
		}
		key := entity.RouteKey{
			Iata:        strings.ToUpper(f.Airline),
			Origin:      strings.ToUpper(f.Origin),
			Destination: strings.ToUpper(f.Destination),
		}
		rec, ok := records[key]
		if !ok {
			rec = &entity.RouteRecord{Key: key}
			records[key] = rec
		}

		switch {
		case f.Weekdays != nil && f.Weekdays.Any():
			rec.Weekdays.Merge(*f.Weekdays)
		case !f.DepartureAt.IsZero():
			local := f.DepartureAt.In(a.zones.Location(context.Background(), key.Origin))
			rec.Weekdays[local.Weekday()] = true
		}
	}
	return records
}
