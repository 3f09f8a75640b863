package swipe

import (
	"math"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

const earthRadiusKm = 6371

// haversine returns the great-circle distance in km.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1 = lat1 * (math.Pi / 180)
	lat2 = lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceKm is the distance between two profiles rounded to 0.1 km.
// It reports false unless both carry coordinates.
func DistanceKm(a, b model.Profile) (float64, bool) {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0, false
	}
	d := haversine(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	return math.Round(d*10) / 10, true
}
