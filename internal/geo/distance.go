// Package geo holds the great-circle distance and travel-time helpers used
// to describe how far a facility is from the search origin.
package geo

import (
	"math"
	"strconv"

	"ambulance_app/internal/domain"
)

const EarthRadiusKm = 6371.0

// UnknownDistance is returned by Distance for malformed input. It is
// indistinguishable from a genuine zero distance, so callers must not treat
// it as "at the origin".
const UnknownDistance = "0.0"

// DistanceKm returns the Haversine distance between a and b in kilometers.
func DistanceKm(a, b domain.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Distance takes raw [lat, lon] pairs and returns the distance in km rounded
// to one decimal. Missing pairs, pairs of the wrong length, or NaN/Inf
// components yield UnknownDistance instead of an error.
func Distance(a, b []float64) string {
	ca, ok := pair(a)
	if !ok {
		return UnknownDistance
	}
	cb, ok := pair(b)
	if !ok {
		return UnknownDistance
	}
	return FormatKm(DistanceKm(ca, cb))
}

func FormatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 1, 64)
}

// ParseKm reads a distance produced by Distance or FormatKm.
func ParseKm(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func pair(p []float64) (domain.Coordinate, bool) {
	if len(p) != 2 {
		return domain.Coordinate{}, false
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Coordinate{}, false
		}
	}
	return domain.Coordinate{Lat: p[0], Lon: p[1]}, true
}

func toRadians(deg float64) float64 { return deg * (math.Pi / 180) }
