package sepehr

import (
	"strconv"
	"strings"

	"flightsync-service/internal/domain/entity"
)

// ParseAvailableSeats reads the trailing digits of a capacity code. A code
// ending in C is closed and has no seats.
func ParseAvailableSeats(code, _ string) int {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.HasSuffix(code, "C") {
		return 0
	}
	start := len(code)
	for start > 0 && code[start-1] >= '0' && code[start-1] <= '9' {
		start--
	}
	n, _ := strconv.Atoi(code[start:])
	return n
}

// DetermineStatus returns closed for codes ending in C and active otherwise.
// An active class with zero seats is not open for sale.
func DetermineStatus(code, _ string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.HasSuffix(code, "C") {
		return entity.ClassStatusClosed
	}
	return entity.ClassStatusActive
}
