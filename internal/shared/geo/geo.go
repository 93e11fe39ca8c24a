package geo

import "math"

// EarthRadiusM is the mean Earth radius used for spherical calculations.
const EarthRadiusM = 6371000.0

type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula.
func DistanceMeters(a, b Coordinate) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	deltaPhi := radians(b.Lat - a.Lat)
	deltaLambda := radians(b.Lng - a.Lng)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	// rounding near antipodes can leave h just outside [0, 1]
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// InitialBearingDegrees returns the forward azimuth from one point toward
// another, in degrees from true north within [0, 360). Identical points
// yield 0.
func InitialBearingDegrees(from, to Coordinate) float64 {
	if from == to {
		return 0
	}
	phi1 := radians(from.Lat)
	phi2 := radians(to.Lat)
	deltaLambda := radians(to.Lng - from.Lng)

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	// Mod can round a tiny negative angle up to exactly 360.
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceMeters(Coordinate{Lat: lat1, Lng: lng1}, Coordinate{Lat: lat2, Lng: lng2}) / 1000
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
