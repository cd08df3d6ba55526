package models

import "math"

// GeoPoint is a plain latitude/longitude pair
type GeoPoint struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
}

// HaversineDistanceKm calculates the distance between two GPS coordinates in kilometers
func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// DistanceMeters is HaversineDistanceKm in meters
func DistanceMeters(a, b GeoPoint) float64 {
	return HaversineDistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude) * 1000
}
