package nira

import (
	"strconv"
	"strings"

	"flightsync-service/internal/domain/entity"
)

// ampleSeats is reported for the "A" capacity tail
const ampleSeats = 9

// capacityTail strips the class prefix from a capacity code such as "Y4"
func capacityTail(code, classPrefix string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	prefix := strings.ToUpper(strings.TrimSpace(classPrefix))
	if prefix != "" && strings.HasPrefix(code, prefix) {
		return code[len(prefix):]
	}
	return code
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseAvailableSeats decodes the seat count of a capacity code
func ParseAvailableSeats(code, classPrefix string) int {
	tail := capacityTail(code, classPrefix)
	switch {
	case tail == "":
		return 0
	case tail == "A":
		return ampleSeats
	case isDigits(tail):
		n, _ := strconv.Atoi(tail)
		return n
	}

	if DetermineStatus(code, classPrefix) != entity.ClassStatusActive {
		return 0
	}
	end := 0
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(tail[:end])
	return n
}

// DetermineStatus decodes the sale status of a capacity code
func DetermineStatus(code, classPrefix string) string {
	tail := capacityTail(code, classPrefix)
	switch {
	case tail == "":
		return entity.ClassStatusClosed
	case tail == "A":
		return entity.ClassStatusActive
	case isDigits(tail):
		if n, _ := strconv.Atoi(tail); n == 0 {
			return entity.ClassStatusFull
		}
		return entity.ClassStatusActive
	}

	switch tail[len(tail)-1] {
	case 'X':
		return entity.ClassStatusCancelled
	case 'C':
		return entity.ClassStatusClosed
	case '0':
		return entity.ClassStatusFull
	default:
		return entity.ClassStatusActive
	}
}
