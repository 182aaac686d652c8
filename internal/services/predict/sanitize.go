package predict

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Asjal001/saferoute/internal/types"
)

var (
	// ErrInvalidCoordinates means lat or lon did not parse as a number.
	ErrInvalidCoordinates = errors.New("please enter valid coordinates")

	// ErrInvalidSpeed means the speed field did not parse as a number.
	ErrInvalidSpeed = errors.New("please enter a valid speed")
)

// Sanitize converts raw form state into the payload the prediction
// service expects. It must run before any network dispatch: a parse
// failure on lat/lon or speed aborts the submission entirely.
func Sanitize(q types.RouteQuery) (types.RoutePayload, error) {
	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return types.RoutePayload{}, fmt.Errorf("%w: lat %q", ErrInvalidCoordinates, q.Lat)
	}

	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return types.RoutePayload{}, fmt.Errorf("%w: lon %q", ErrInvalidCoordinates, q.Lon)
	}

	speed, err := strconv.ParseFloat(q.Speed, 64)
	if err != nil {
		return types.RoutePayload{}, fmt.Errorf("%w: %q", ErrInvalidSpeed, q.Speed)
	}

	hour, err := strconv.Atoi(q.Hour)
	if err != nil {
		hour = 0
	}

	day, err := strconv.Atoi(q.Day)
	if err != nil {
		day = 0
	}

	return types.RoutePayload{
		Hour:    hour,
		Day:     day,
		Lat:     lat,
		Lon:     lon,
		Speed:   speed,
		Road:    q.Road,
		Weather: q.Weather,
	}, nil
}
