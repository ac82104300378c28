package geo

import "math"

const DefaultAverageSpeedKmh = 60.0

// ETAMinutes estimates travel time in whole minutes for distanceKm at
// averageSpeedKmh. The result is never below one minute. A non-positive
// speed falls back to DefaultAverageSpeedKmh.
func ETAMinutes(distanceKm, averageSpeedKmh float64) int {
	if averageSpeedKmh <= 0 || math.IsNaN(averageSpeedKmh) || math.IsInf(averageSpeedKmh, 0) {
		averageSpeedKmh = DefaultAverageSpeedKmh
	}
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 1
	}
	minutes := int(math.Round(distanceKm / averageSpeedKmh * 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ETAFromDistance is ETAMinutes for a formatted distance string. Unparseable
// input is treated as zero distance.
func ETAFromDistance(distance string, averageSpeedKmh float64) int {
	km, _ := ParseKm(distance)
	return ETAMinutes(km, averageSpeedKmh)
}
