package repository

import (
	"context"
	"fmt"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/internal/infrastructure/persistence"

	"gorm.io/gorm"
)

// GormRouteRepository implements the RouteRepository interface
type GormRouteRepository struct {
	db     *gorm.DB
	writer *persistence.BulkWriter
}

// NewGormRouteRepository creates a new GORM route repository
func NewGormRouteRepository(db *gorm.DB, batchSize int) repository.RouteRepository {
	return &GormRouteRepository{
		db:     db,
		writer: persistence.NewBulkWriter(db, batchSize),
	}
}

// Routes GORM model for database mapping
type Routes struct {
	ID          uint   `gorm:"primaryKey"`
	Provider    string `gorm:"column:provider;size:32;index"`
	InterfaceID uint   `gorm:"column:interface_id;uniqueIndex:idx_routes_natural"`
	Iata        string `gorm:"column:iata;size:8;uniqueIndex:idx_routes_natural"`
	Origin      string `gorm:"column:origin;size:8;uniqueIndex:idx_routes_natural"`
	Destination string `gorm:"column:destination;size:8;uniqueIndex:idx_routes_natural"`
	Sun         bool   `gorm:"column:sun"`
	Mon         bool   `gorm:"column:mon"`
	Tue         bool   `gorm:"column:tue"`
	Wed         bool   `gorm:"column:wed"`
	Thu         bool   `gorm:"column:thu"`
	Fri         bool   `gorm:"column:fri"`
	Sat         bool   `gorm:"column:sat"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the default table name
func (Routes) TableName() string {
	return "routes"
}

var routeTable = persistence.TableSpec{
	Table:      "routes",
	KeyColumns: []string{"interface_id", "iata", "origin", "destination"},
	Timestamps: true,
	Types: map[string]string{
		"sun": "boolean", "mon": "boolean", "tue": "boolean", "wed": "boolean",
		"thu": "boolean", "fri": "boolean", "sat": "boolean",
	},
}

// weekdayColumns is indexed by time.Weekday
var weekdayColumns = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// FindByInterface lists the routes of an interface
func (r *GormRouteRepository) FindByInterface(ctx context.Context, interfaceID uint) ([]*entity.Route, error) {
	var models []Routes
	err := r.db.WithContext(ctx).
		Where("interface_id = ?", interfaceID).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	routes := make([]*entity.Route, len(models))
	for i := range models {
		routes[i] = models[i].toEntity()
	}
	return routes, nil
}

// Reconcile replaces the route catalog of an interface with routes in one
// transaction. Stored routes missing from routes are deleted along with their
// flights, the rest are upserted by natural key.
func (r *GormRouteRepository) Reconcile(ctx context.Context, interfaceID uint, routes []*entity.Route) (int, error) {
	rows := make([]persistence.Row, 0, len(routes))
	wanted := make(map[string]bool, len(routes))
	for _, route := range routes {
		row := routeRow(interfaceID, route)
		rows = append(rows, row)
		wanted[persistence.NaturalKey(routeTable, row)] = true
	}

	deleted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored []Routes
		if err := tx.Select("id", "interface_id", "iata", "origin", "destination").
			Where("interface_id = ?", interfaceID).
			Find(&stored).Error; err != nil {
			return err
		}

		var stale []uint
		for _, s := range stored {
			key := persistence.NaturalKey(routeTable, persistence.Row{
				"interface_id": s.InterfaceID,
				"iata":         s.Iata,
				"origin":       s.Origin,
				"destination":  s.Destination,
			})
			if !wanted[key] {
				stale = append(stale, s.ID)
			}
		}

		w := r.writer.WithDB(tx)
		if len(stale) > 0 {
			var flightIDs []uint
			if err := tx.Table(flightTable.Table).Where("route_id IN ?", stale).Pluck("id", &flightIDs).Error; err != nil {
				return err
			}
			if _, err := deleteFlightTree(ctx, tx, w, flightIDs); err != nil {
				return err
			}
		}
		if err := w.DeleteIn(ctx, routeTable.Table, "id", stale); err != nil {
			return err
		}
		deleted = len(stale)

		_, err := w.Upsert(ctx, routeTable, rows)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reconcile routes of interface %d: %w", interfaceID, err)
	}
	return deleted, nil
}

func routeRow(interfaceID uint, route *entity.Route) persistence.Row {
	row := persistence.Row{
		"provider":     route.Provider,
		"interface_id": interfaceID,
		"iata":         route.Iata,
		"origin":       route.Origin,
		"destination":  route.Destination,
	}
	for day, col := range weekdayColumns {
		row[col] = route.Weekdays[day]
	}
	return row
}

// Convert GORM model to domain entity
func (m *Routes) toEntity() *entity.Route {
	return &entity.Route{
		ID:          m.ID,
		Provider:    m.Provider,
		InterfaceID: m.InterfaceID,
		Iata:        m.Iata,
		Origin:      m.Origin,
		Destination: m.Destination,
		Weekdays:    entity.Weekdays{m.Sun, m.Mon, m.Tue, m.Wed, m.Thu, m.Fri, m.Sat},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
