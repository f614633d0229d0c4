package utils

import (
	"math"
	"time"
)

const (
	// closeGuard is the time-to-departure below which a flight is no longer
	// rechecked by the adaptive scheduler
	closeGuard = 2 * time.Hour
	// minCheckInterval floors the recheck interval after time-of-day scaling
	minCheckInterval = 2 * time.Minute
)

// ScoreFlight rates how volatile a flight currently is on a 0-100 scale and
// returns when it should be checked next. Flights with no open class or
// departing within two hours score 0 and get no next check; the wide status
// sync owns them from then on. loc is the provider's local civil time zone
// used for the time-of-day multiplier.
func ScoreFlight(openClassCount, minCapacity int, minPrice int64, departure, now time.Time, loc *time.Location) (int, *time.Time) {
	toDeparture := departure.Sub(now)
	if openClassCount <= 0 || toDeparture < closeGuard {
		return 0, nil
	}

	hours := toDeparture.Hours()
	score := min(100, classScore(openClassCount)+capacityScore(minCapacity)+timeScore(hours))

	interval := scaleByTimeOfDay(checkInterval(score, hours), now, loc)
	next := now.Add(interval)
	return score, &next
}

func classScore(openClassCount int) int {
	return min(30, openClassCount*5)
}

func capacityScore(minCapacity int) int {
	switch {
	case minCapacity <= 1:
		return 30
	case minCapacity <= 3:
		return 25
	case minCapacity <= 5:
		return 15
	case minCapacity <= 10:
		return 5
	default:
		return 0
	}
}

func timeScore(hours float64) int {
	switch {
	case hours <= 6:
		return 40
	case hours <= 12:
		return 35
	case hours <= 24:
		return 30
	case hours <= 48:
		return 20
	case hours <= 72:
		return 15
	case hours <= 168:
		return 10
	case hours <= 720:
		return 5
	default:
		return 2
	}
}

func checkInterval(score int, hours float64) time.Duration {
	if hours <= 12 {
		switch {
		case score >= 50:
			return 2 * time.Minute
		case score >= 30:
			return 5 * time.Minute
		default:
			return 15 * time.Minute
		}
	}

	switch {
	case score >= 80:
		return 2 * time.Minute
	case score >= 60:
		return 5 * time.Minute
	case score >= 40:
		return 15 * time.Minute
	case score >= 25:
		return 30 * time.Minute
	case score >= 10:
		return 60 * time.Minute
	default:
		return 180 * time.Minute
	}
}

// TimeOfDayMultiplier returns the recheck interval multiplier for the local
// hour of t: 3.0 overnight (00-06), 0.7 in the morning (08-11) and evening
// (17-21) peaks, 1.0 otherwise
func TimeOfDayMultiplier(t time.Time, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}
	switch hour := t.In(loc).Hour(); {
	case hour < 6:
		return 3.0
	case hour >= 8 && hour < 11, hour >= 17 && hour < 21:
		return 0.7
	default:
		return 1.0
	}
}

func scaleByTimeOfDay(interval time.Duration, now time.Time, loc *time.Location) time.Duration {
	scaled := time.Duration(math.Round(float64(interval) * TimeOfDayMultiplier(now, loc)))
	return max(scaled, minCheckInterval)
}
