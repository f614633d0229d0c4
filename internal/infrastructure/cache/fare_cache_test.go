package cache

import (
	"testing"
	"time"

	"flightsync-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestFareKey(t *testing.T) {
	t.Parallel()
	req := entity.FareRequest{
		Origin:       "thr",
		Destination:  "mhd",
		ClassCode:    "y",
		Date:         time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		FlightNumber: "iv1234",
	}
	assert.Equal(t, "nira|4|THR-MHD|2026-11-02|IV1234|Y", FareKey("nira", 4, req))

	other := req
	other.ClassCode = "M"
	assert.NotEqual(t, FareKey("nira", 4, req), FareKey("nira", 4, other))
	assert.NotEqual(t, FareKey("nira", 4, req), FareKey("nira", 5, req))
}
