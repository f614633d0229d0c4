package utils

import (
	"fmt"
	"time"

	"flightsync-service/internal/domain/entity"
)

// Periods lists the polling periods, shortest first
var Periods = []int{3, 7, 30, 60, 90, 120}

// periodRanges maps a polling period to its inclusive days-ahead range
var periodRanges = map[int][2]int{
	3:   {0, 3},
	7:   {4, 7},
	30:  {8, 30},
	60:  {31, 60},
	90:  {61, 90},
	120: {91, 120},
}

// PeriodRange returns the inclusive days-ahead range of a polling period
func PeriodRange(period int) (from, to int, err error) {
	r, ok := periodRanges[period]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", entity.ErrInvalidPeriod, period)
	}
	return r[0], r[1], nil
}

// PeriodDates expands a polling period into local calendar dates (midnight in
// loc) counted from the local date of now
func PeriodDates(period int, now time.Time, loc *time.Location) ([]time.Time, error) {
	from, to, err := PeriodRange(period)
	if err != nil {
		return nil, err
	}

	today := StartOfDay(now, loc)
	dates := make([]time.Time, 0, to-from+1)
	for offset := from; offset <= to; offset++ {
		dates = append(dates, today.AddDate(0, 0, offset))
	}
	return dates, nil
}
