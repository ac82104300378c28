package domain

import (
	"errors"
	"fmt"
	"math"
)

// Coordinate is a (latitude, longitude) pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

var (
	errNotFinite    = errors.New("coordinate components must be finite")
	errLatOutOfBand = errors.New("latitude must be within [-90, 90]")
	errLonOutOfBand = errors.New("longitude must be within [-180, 180]")
)

func (c Coordinate) Validate() error {
	if !finite(c.Lat) || !finite(c.Lon) {
		return errNotFinite
	}
	if c.Lat < -90 || c.Lat > 90 {
		return errLatOutOfBand
	}
	if c.Lon < -180 || c.Lon > 180 {
		return errLonOutOfBand
	}
	return nil
}

// Pair returns the coordinate as [lat, lon].
func (c Coordinate) Pair() []float64 { return []float64{c.Lat, c.Lon} }

func (c Coordinate) String() string { return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon) }

// CoordinateFromPair builds a Coordinate from a raw [lat, lon] pair and
// wraps ErrInvalidInput when the pair is missing or malformed.
func CoordinateFromPair(p []float64) (Coordinate, error) {
	if len(p) != 2 {
		return Coordinate{}, fmt.Errorf("%w: expected [lat, lon], got %d values", ErrInvalidInput, len(p))
	}
	c := Coordinate{Lat: p[0], Lon: p[1]}
	if err := c.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return c, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
