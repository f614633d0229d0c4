package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/internal/infrastructure/persistence"

	"gorm.io/gorm"
)

// idChunk bounds the number of ids bound into one IN clause
const idChunk = 1000

// GormFlightRepository implements the FlightRepository interface on top of
// the bulk writer
type GormFlightRepository struct {
	db     *gorm.DB
	writer *persistence.BulkWriter
	now    func() time.Time
}

// NewGormFlightRepository creates a new GORM flight repository
func NewGormFlightRepository(db *gorm.DB, batchSize int) repository.FlightRepository {
	return &GormFlightRepository{
		db:     db,
		writer: persistence.NewBulkWriter(db, batchSize),
		now:    time.Now,
	}
}

// Flights GORM model for database mapping
type Flights struct {
	ID              uint       `gorm:"primaryKey"`
	RouteID         uint       `gorm:"column:route_id;uniqueIndex:idx_flights_natural"`
	FlightNumber    string     `gorm:"column:flight_number;size:16;uniqueIndex:idx_flights_natural"`
	DepartureAt     time.Time  `gorm:"column:departure_at;uniqueIndex:idx_flights_natural;index"`
	Aircraft        string     `gorm:"column:aircraft"`
	MissingCount    int        `gorm:"column:missing_count"`
	IsOpen          bool       `gorm:"column:is_open"`
	OpenClassCount  int        `gorm:"column:open_class_count"`
	MinPrice        int64      `gorm:"column:min_price"`
	MinCapacity     int        `gorm:"column:min_capacity"`
	FlightScore     int        `gorm:"column:flight_score"`
	NextCheckAt     *time.Time `gorm:"column:next_check_at;index"`
	StatusCheckedAt *time.Time `gorm:"column:status_checked_at"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the default table name
func (Flights) TableName() string {
	return "flights"
}

// FlightDetails GORM model for database mapping
type FlightDetails struct {
	ID           uint       `gorm:"primaryKey"`
	FlightID     uint       `gorm:"column:flight_id;uniqueIndex"`
	ArrivalAt    *time.Time `gorm:"column:arrival_at"`
	Transit      string     `gorm:"column:transit"`
	AircraftName string     `gorm:"column:aircraft_name"`
	AirlineName  string     `gorm:"column:airline_name"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the default table name
func (FlightDetails) TableName() string {
	return "flight_details"
}

// FlightClasses GORM model for database mapping
type FlightClasses struct {
	ID             uint       `gorm:"primaryKey"`
	FlightID       uint       `gorm:"column:flight_id;uniqueIndex:idx_flight_classes_natural"`
	ClassCode      string     `gorm:"column:class_code;size:16;uniqueIndex:idx_flight_classes_natural"`
	CapacityCode   string     `gorm:"column:capacity_code;size:16"`
	AdultPrice     int64      `gorm:"column:adult_price"`
	ChildPrice     int64      `gorm:"column:child_price"`
	InfantPrice    int64      `gorm:"column:infant_price"`
	AvailableSeats int        `gorm:"column:available_seats"`
	Status         string     `gorm:"column:status;size:16"`
	FareFetchedAt  *time.Time `gorm:"column:fare_fetched_at"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the default table name
func (FlightClasses) TableName() string {
	return "flight_classes"
}

// FareBreakdowns GORM model for database mapping
type FareBreakdowns struct {
	ID            uint   `gorm:"primaryKey"`
	FlightClassID uint   `gorm:"column:flight_class_id;uniqueIndex:idx_fare_breakdowns_natural"`
	PassengerType string `gorm:"column:passenger_type;size:8;uniqueIndex:idx_fare_breakdowns_natural"`
	BaseFare      int64  `gorm:"column:base_fare"`
	TotalTax      int64  `gorm:"column:total_tax"`
	Total         int64  `gorm:"column:total"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the default table name
func (FareBreakdowns) TableName() string {
	return "fare_breakdowns"
}

// FlightClassTaxes GORM model for database mapping
type FlightClassTaxes struct {
	ID            uint   `gorm:"primaryKey"`
	FlightClassID uint   `gorm:"column:flight_class_id;index"`
	PassengerType string `gorm:"column:passenger_type;size:8"`
	Code          string `gorm:"column:code;size:16"`
	Amount        int64  `gorm:"column:amount"`
}

// TableName overrides the default table name
func (FlightClassTaxes) TableName() string {
	return "flight_class_taxes"
}

// FlightClassBaggages GORM model for database mapping
type FlightClassBaggages struct {
	ID            uint   `gorm:"primaryKey"`
	FlightClassID uint   `gorm:"column:flight_class_id;index"`
	PassengerType string `gorm:"column:passenger_type;size:8"`
	Allowance     string `gorm:"column:allowance"`
	WeightKg      int    `gorm:"column:weight_kg"`
	Pieces        int    `gorm:"column:pieces"`
}

// TableName overrides the default table name
func (FlightClassBaggages) TableName() string {
	return "flight_class_baggages"
}

// FlightClassRules GORM model for database mapping
type FlightClassRules struct {
	ID            uint   `gorm:"primaryKey"`
	FlightClassID uint   `gorm:"column:flight_class_id;index"`
	RuleText      string `gorm:"column:rule_text"`
	Percent       int    `gorm:"column:percent"`
	HoursBefore   int    `gorm:"column:hours_before"`
}

// TableName overrides the default table name
func (FlightClassRules) TableName() string {
	return "flight_class_rules"
}

var (
	flightTable = persistence.TableSpec{
		Table:      "flights",
		KeyColumns: []string{"route_id", "flight_number", "departure_at"},
		Timestamps: true,
		Types: map[string]string{
			"missing_count":     "integer",
			"is_open":           "boolean",
			"open_class_count":  "integer",
			"min_price":         "bigint",
			"min_capacity":      "integer",
			"flight_score":      "integer",
			"next_check_at":     "timestamptz",
			"status_checked_at": "timestamptz",
		},
	}
	detailTable = persistence.TableSpec{
		Table:      "flight_details",
		KeyColumns: []string{"flight_id"},
		Timestamps: true,
		Types:      map[string]string{"arrival_at": "timestamptz"},
	}
	classTable = persistence.TableSpec{
		Table:      "flight_classes",
		KeyColumns: []string{"flight_id", "class_code"},
		Timestamps: true,
		Types: map[string]string{
			"adult_price":     "bigint",
			"child_price":     "bigint",
			"infant_price":    "bigint",
			"available_seats": "integer",
			"fare_fetched_at": "timestamptz",
		},
	}
	breakdownTable = persistence.TableSpec{
		Table:      "fare_breakdowns",
		KeyColumns: []string{"flight_class_id", "passenger_type"},
		Timestamps: true,
		Types:      map[string]string{"base_fare": "bigint", "total_tax": "bigint", "total": "bigint"},
	}
	taxTable     = persistence.TableSpec{Table: "flight_class_taxes"}
	baggageTable = persistence.TableSpec{Table: "flight_class_baggages"}
	ruleTable    = persistence.TableSpec{Table: "flight_class_rules"}
)

// SaveBundles persists flights, details and classes by natural key in one
// transaction. Inline fares carried by bundles are written as well.
func (r *GormFlightRepository) SaveBundles(ctx context.Context, bundles []entity.FlightBundle) (entity.SaveResult, error) {
	var result entity.SaveResult
	if len(bundles) == 0 {
		return result, nil
	}
	now := r.now().UTC()

	type classOrigin struct {
		flightID uint
		flight   *entity.Flight
		bundle   *entity.ClassBundle
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := r.writer.WithDB(tx)

		flightRows := make([]persistence.Row, len(bundles))
		for i := range bundles {
			flightRows[i] = flightRow(&bundles[i].Flight)
		}
		flights, err := w.Upsert(ctx, flightTable, flightRows)
		if err != nil {
			return err
		}
		result.FlightsNew = flights.Inserted
		result.FlightsUpdated = flights.Updated

		var detailRows, classRows []persistence.Row
		origins := make(map[string]classOrigin)
		for i := range bundles {
			b := &bundles[i]
			flightID := flights.IDs[persistence.NaturalKey(flightTable, flightRows[i])]
			if flightID == 0 {
				continue
			}
			detailRows = append(detailRows, detailRow(flightID, &b.Detail))
			for j := range b.Classes {
				row := classRow(flightID, &b.Classes[j].Class)
				classRows = append(classRows, row)
				origins[persistence.NaturalKey(classTable, row)] = classOrigin{
					flightID: flightID,
					flight:   &b.Flight,
					bundle:   &b.Classes[j],
				}
			}
		}

		if _, err := w.Upsert(ctx, detailTable, detailRows); err != nil {
			return err
		}
		classes, err := w.Upsert(ctx, classTable, classRows)
		if err != nil {
			return err
		}
		result.ClassesNew = classes.Inserted
		result.ClassesUpdated = classes.Updated

		for _, key := range classes.InsertedKeys {
			origin := origins[key]
			result.NewClasses = append(result.NewClasses, entity.NewClass{
				ClassID:      classes.IDs[key],
				FlightID:     origin.flightID,
				RouteID:      origin.flight.RouteID,
				ClassCode:    origin.bundle.Class.ClassCode,
				FlightNumber: origin.flight.FlightNumber,
				DepartureAt:  origin.flight.DepartureAt.UTC(),
			})
		}

		fares := make(map[uint]*entity.RawFare)
		for key, origin := range origins {
			if origin.bundle.Fare == nil {
				continue
			}
			if id := classes.IDs[key]; id != 0 {
				fares[id] = origin.bundle.Fare
			}
		}
		return r.saveFares(ctx, tx, w, fares, now)
	})
	if err != nil {
		return entity.SaveResult{}, fmt.Errorf("save flight bundles: %w", err)
	}
	return result, nil
}

// FindUpcoming lists flights of an interface departing at or after from
func (r *GormFlightRepository) FindUpcoming(ctx context.Context, interfaceID uint, from time.Time) ([]*entity.FlightRef, error) {
	return r.findRefs(ctx, r.db.WithContext(ctx).
		Where("routes.interface_id = ? AND flights.departure_at >= ?", interfaceID, from.UTC()))
}

// FindDue lists upcoming flights of an interface whose next check is due
func (r *GormFlightRepository) FindDue(ctx context.Context, interfaceID uint, now time.Time) ([]*entity.FlightRef, error) {
	now = now.UTC()
	return r.findRefs(ctx, r.db.WithContext(ctx).
		Where("routes.interface_id = ? AND flights.departure_at >= ?", interfaceID, now).
		Where("flights.next_check_at IS NOT NULL AND flights.next_check_at <= ?", now))
}

type flightRefRow struct {
	Flights
	InterfaceID uint
	Iata        string
	Origin      string
	Destination string
}

func (r *GormFlightRepository) findRefs(ctx context.Context, query *gorm.DB) ([]*entity.FlightRef, error) {
	var rows []flightRefRow
	err := query.Table("flights").
		Select("flights.*, routes.interface_id, routes.iata, routes.origin, routes.destination").
		Joins("JOIN routes ON routes.id = flights.route_id").
		Order("flights.departure_at, flights.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find flights: %w", err)
	}

	refs := make([]*entity.FlightRef, len(rows))
	for i := range rows {
		refs[i] = &entity.FlightRef{
			Flight:      rows[i].Flights.toEntity(),
			InterfaceID: rows[i].InterfaceID,
			Iata:        rows[i].Iata,
			Origin:      rows[i].Origin,
			Destination: rows[i].Destination,
		}
	}
	return refs, nil
}

// ClassesByFlight loads the classes of the given flights
func (r *GormFlightRepository) ClassesByFlight(ctx context.Context, flightIDs []uint) (map[uint][]*entity.FlightClass, error) {
	out := make(map[uint][]*entity.FlightClass)
	err := eachChunk(flightIDs, func(chunk []uint) error {
		var models []FlightClasses
		if err := r.db.WithContext(ctx).
			Where("flight_id IN ?", chunk).
			Order("flight_id, class_code").
			Find(&models).Error; err != nil {
			return err
		}
		for i := range models {
			class := models[i].toEntity()
			out[class.FlightID] = append(out[class.FlightID], class)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load flight classes: %w", err)
	}
	return out, nil
}

// UpdateStatuses writes the status projection of flights by natural key.
// Unknown flights are ignored.
func (r *GormFlightRepository) UpdateStatuses(ctx context.Context, statuses []entity.FlightStatus) (int, error) {
	rows := make([]persistence.Row, len(statuses))
	for i, s := range statuses {
		rows[i] = persistence.Row{
			"route_id":          s.RouteID,
			"flight_number":     s.FlightNumber,
			"departure_at":      s.DepartureAt.UTC(),
			"is_open":           s.IsOpen,
			"open_class_count":  s.OpenClassCount,
			"min_price":         s.MinPrice,
			"min_capacity":      s.MinCapacity,
			"flight_score":      s.FlightScore,
			"next_check_at":     nullableTime(s.NextCheckAt),
			"status_checked_at": s.StatusCheckedAt.UTC(),
		}
	}

	result, err := r.writer.Update(ctx, flightTable, rows)
	if err != nil {
		return 0, fmt.Errorf("update flight statuses: %w", err)
	}
	return result.Updated, nil
}

// MarkMissing increments the miss counter of flights, closes them and
// closes all their classes
func (r *GormFlightRepository) MarkMissing(ctx context.Context, flightIDs []uint) error {
	now := r.now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return eachChunk(flightIDs, func(chunk []uint) error {
			if err := tx.Exec(
				"UPDATE flights SET missing_count = missing_count + 1, is_open = ?, open_class_count = 0, updated_at = ? WHERE id IN ?",
				false, now, chunk,
			).Error; err != nil {
				return fmt.Errorf("mark flights missing: %w", err)
			}
			if err := tx.Exec(
				"UPDATE flight_classes SET status = ?, available_seats = 0, updated_at = ? WHERE flight_id IN ?",
				entity.ClassStatusClosed, now, chunk,
			).Error; err != nil {
				return fmt.Errorf("close classes of missing flights: %w", err)
			}
			return nil
		})
	})
}

// ResetMissing zeroes the miss counter of flights that have one
func (r *GormFlightRepository) ResetMissing(ctx context.Context, flightIDs []uint) error {
	now := r.now().UTC()
	return eachChunk(flightIDs, func(chunk []uint) error {
		err := r.db.WithContext(ctx).Exec(
			"UPDATE flights SET missing_count = 0, updated_at = ? WHERE id IN ? AND missing_count <> 0",
			now, chunk,
		).Error
		if err != nil {
			return fmt.Errorf("reset missing counter: %w", err)
		}
		return nil
	})
}

// DeleteFlights deletes flights together with their details, classes and
// class children
func (r *GormFlightRepository) DeleteFlights(ctx context.Context, flightIDs []uint) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = deleteFlightTree(ctx, tx, r.writer.WithDB(tx), flightIDs)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete flights: %w", err)
	}
	return deleted, nil
}

// deleteFlightTree removes flights and every row hanging off them within tx
func deleteFlightTree(ctx context.Context, tx *gorm.DB, w *persistence.BulkWriter, flightIDs []uint) (int64, error) {
	var deleted int64
	err := eachChunk(flightIDs, func(chunk []uint) error {
		var classIDs []uint
		if err := tx.Table(classTable.Table).Where("flight_id IN ?", chunk).Pluck("id", &classIDs).Error; err != nil {
			return err
		}
		for _, table := range []string{breakdownTable.Table, taxTable.Table, baggageTable.Table, ruleTable.Table} {
			if err := w.DeleteIn(ctx, table, "flight_class_id", classIDs); err != nil {
				return err
			}
		}
		if err := w.DeleteIn(ctx, classTable.Table, "flight_id", chunk); err != nil {
			return err
		}
		if err := w.DeleteIn(ctx, detailTable.Table, "flight_id", chunk); err != nil {
			return err
		}
		res := tx.Exec("DELETE FROM flights WHERE id IN ?", chunk)
		if res.Error != nil {
			return res.Error
		}
		deleted += res.RowsAffected
		return nil
	})
	return deleted, err
}

// DeleteDepartedBefore deletes every flight departing before cutoff
func (r *GormFlightRepository) DeleteDepartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Table(flightTable.Table).
		Where("departure_at < ?", cutoff.UTC()).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("find departed flights: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return r.DeleteFlights(ctx, ids)
}

type classRefRow struct {
	ClassID      uint
	ClassCode    string
	FlightNumber string
	DepartureAt  time.Time
	InterfaceID  uint
	Provider     string
	Origin       string
	Destination  string
}

// ClassesMissingFare lists classes of upcoming flights that never got their
// fare detail, soonest departure first
func (r *GormFlightRepository) ClassesMissingFare(ctx context.Context, providers []string, from time.Time, limit int) ([]*entity.ClassRef, error) {
	if len(providers) == 0 {
		return nil, nil
	}

	var rows []classRefRow
	err := r.db.WithContext(ctx).
		Table("flight_classes").
		Select("flight_classes.id AS class_id, flight_classes.class_code, flights.flight_number, flights.departure_at, " +
			"routes.interface_id, routes.provider, routes.origin, routes.destination").
		Joins("JOIN flights ON flights.id = flight_classes.flight_id").
		Joins("JOIN routes ON routes.id = flights.route_id").
		Where("flight_classes.fare_fetched_at IS NULL").
		Where("flights.departure_at >= ?", from.UTC()).
		Where("routes.provider IN ?", providers).
		Order("flights.departure_at, flight_classes.id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find classes missing fare detail: %w", err)
	}

	refs := make([]*entity.ClassRef, len(rows))
	for i, row := range rows {
		refs[i] = &entity.ClassRef{
			ClassID:      row.ClassID,
			ClassCode:    row.ClassCode,
			FlightNumber: row.FlightNumber,
			DepartureAt:  row.DepartureAt.UTC(),
			InterfaceID:  row.InterfaceID,
			Provider:     row.Provider,
			Origin:       row.Origin,
			Destination:  row.Destination,
		}
	}
	return refs, nil
}

// SaveFareDetail writes the fare detail of one class and stamps its fetch time
func (r *GormFlightRepository) SaveFareDetail(ctx context.Context, classID uint, fare *entity.RawFare, fetchedAt time.Time) error {
	if fare == nil {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveFares(ctx, tx, r.writer.WithDB(tx), map[uint]*entity.RawFare{classID: fare}, fetchedAt.UTC())
	})
	if err != nil {
		return fmt.Errorf("save fare detail of class %d: %w", classID, err)
	}
	return nil
}

// saveFares upserts breakdowns, replaces taxes, baggage and rules and stamps
// fare_fetched_at on the owning classes
func (r *GormFlightRepository) saveFares(ctx context.Context, tx *gorm.DB, w *persistence.BulkWriter, fares map[uint]*entity.RawFare, fetchedAt time.Time) error {
	if len(fares) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(fares))
	for id := range fares {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var breakdowns, taxes, baggage, rules []persistence.Row
	for _, id := range ids {
		fare := fares[id]
		for _, b := range fare.Breakdown {
			breakdowns = append(breakdowns, persistence.Row{
				"flight_class_id": id,
				"passenger_type":  passengerType(b.PassengerType),
				"base_fare":       b.BaseFare,
				"total_tax":       b.TotalTax,
				"total":           b.Total,
			})
		}
		for _, t := range fare.Taxes {
			taxes = append(taxes, persistence.Row{
				"flight_class_id": id,
				"passenger_type":  passengerType(t.PassengerType),
				"code":            t.Code,
				"amount":          t.Amount,
			})
		}
		for _, b := range fare.Baggage {
			baggage = append(baggage, persistence.Row{
				"flight_class_id": id,
				"passenger_type":  passengerType(b.PassengerType),
				"allowance":       b.Allowance,
				"weight_kg":       b.WeightKg,
				"pieces":          b.Pieces,
			})
		}
		for _, rule := range fare.Rules {
			rules = append(rules, persistence.Row{
				"flight_class_id": id,
				"rule_text":       rule.Text,
				"percent":         rule.Percent,
				"hours_before":    rule.HoursBefore,
			})
		}
	}

	if _, err := w.Upsert(ctx, breakdownTable, breakdowns); err != nil {
		return err
	}
	if err := w.ReplaceChildren(ctx, taxTable, "flight_class_id", ids, taxes); err != nil {
		return err
	}
	if err := w.ReplaceChildren(ctx, baggageTable, "flight_class_id", ids, baggage); err != nil {
		return err
	}
	if err := w.ReplaceChildren(ctx, ruleTable, "flight_class_id", ids, rules); err != nil {
		return err
	}

	return eachChunk(ids, func(chunk []uint) error {
		return tx.Exec("UPDATE flight_classes SET fare_fetched_at = ?, updated_at = ? WHERE id IN ?",
			fetchedAt, fetchedAt, chunk).Error
	})
}

func flightRow(f *entity.Flight) persistence.Row {
	return persistence.Row{
		"route_id":         f.RouteID,
		"flight_number":    f.FlightNumber,
		"departure_at":     f.DepartureAt.UTC(),
		"aircraft":         f.Aircraft,
		"missing_count":    f.MissingCount,
		"is_open":          f.IsOpen,
		"open_class_count": f.OpenClassCount,
		"min_price":        f.MinPrice,
		"min_capacity":     f.MinCapacity,
	}
}

func detailRow(flightID uint, d *entity.FlightDetail) persistence.Row {
	return persistence.Row{
		"flight_id":     flightID,
		"arrival_at":    nullableTime(d.ArrivalAt),
		"transit":       d.Transit,
		"aircraft_name": d.AircraftName,
		"airline_name":  d.AirlineName,
	}
}

func classRow(flightID uint, c *entity.FlightClass) persistence.Row {
	return persistence.Row{
		"flight_id":       flightID,
		"class_code":      c.ClassCode,
		"capacity_code":   c.CapacityCode,
		"adult_price":     c.AdultPrice,
		"child_price":     c.ChildPrice,
		"infant_price":    c.InfantPrice,
		"available_seats": c.AvailableSeats,
		"status":          c.Status,
	}
}

func passengerType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case entity.PassengerChild, "chd":
		return entity.PassengerChild
	case entity.PassengerInfant, "inf":
		return entity.PassengerInfant
	default:
		return entity.PassengerAdult
	}
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func eachChunk(ids []uint, fn func([]uint) error) error {
	for start := 0; start < len(ids); start += idChunk {
		if err := fn(ids[start:min(start+idChunk, len(ids))]); err != nil {
			return err
		}
	}
	return nil
}

// Convert GORM model to domain entity
func (m *Flights) toEntity() entity.Flight {
	return entity.Flight{
		ID:              m.ID,
		RouteID:         m.RouteID,
		FlightNumber:    m.FlightNumber,
		DepartureAt:     m.DepartureAt.UTC(),
		Aircraft:        m.Aircraft,
		MissingCount:    m.MissingCount,
		IsOpen:          m.IsOpen,
		OpenClassCount:  m.OpenClassCount,
		MinPrice:        m.MinPrice,
		MinCapacity:     m.MinCapacity,
		FlightScore:     m.FlightScore,
		NextCheckAt:     m.NextCheckAt,
		StatusCheckedAt: m.StatusCheckedAt,
	}
}

// Convert GORM model to domain entity
func (m *FlightClasses) toEntity() *entity.FlightClass {
	return &entity.FlightClass{
		ID:             m.ID,
		FlightID:       m.FlightID,
		ClassCode:      m.ClassCode,
		CapacityCode:   m.CapacityCode,
		AdultPrice:     m.AdultPrice,
		ChildPrice:     m.ChildPrice,
		InfantPrice:    m.InfantPrice,
		AvailableSeats: m.AvailableSeats,
		Status:         m.Status,
		FareFetchedAt:  m.FareFetchedAt,
	}
}
