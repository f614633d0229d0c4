package repository

import (
	"context"
	"errors"
	"strings"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormTimezoneRepository implements the TimezoneRepository interface
type GormTimezoneRepository struct {
	db *gorm.DB
}

// NewGormTimezoneRepository creates a new GORM timezone repository
func NewGormTimezoneRepository(db *gorm.DB) repository.TimezoneRepository {
	return &GormTimezoneRepository{
		db: db,
	}
}

// Timezonelist GORM model for database mapping
type Timezonelist struct {
	ID          uint   `gorm:"primaryKey"`
	AirportCode string `gorm:"column:airportcode;size:8;unique"`
	AirportName string `gorm:"column:airport_name"`
	CityCode    string `gorm:"column:citycode"`
	CityName    string `gorm:"column:cityname"`
	GmtTz       string `gorm:"column:gmttz"`
	TzName      string `gorm:"column:tzname"`
}

// TableName overrides the default table name
func (Timezonelist) TableName() string {
	return "m_timezone_list"
}

// GetByAirportCode finds a timezone by airport code
func (r *GormTimezoneRepository) GetByAirportCode(ctx context.Context, code string) (*entity.Timezone, error) {
	var timezone Timezonelist
	result := r.db.WithContext(ctx).Where("airportcode = ?", strings.ToUpper(code)).First(&timezone)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, entity.ErrTimezoneNotFound
		}
		return nil, result.Error
	}

	return &entity.Timezone{
		ID:          timezone.ID,
		AirportCode: timezone.AirportCode,
		AirportName: timezone.AirportName,
		CityCode:    timezone.CityCode,
		CityName:    timezone.CityName,
		GmtTz:       timezone.GmtTz,
		TzName:      timezone.TzName,
	}, nil
}
