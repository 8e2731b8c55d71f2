// Package geo provides the great-circle geometry primitives used by the
// fusion engine: haversine distance, forward-azimuth bearing, and
// centroid/spread statistics over sets of observed coordinates.
//
// All functions are pure; distances are in metres and angles in degrees.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusM is the mean Earth radius used by the haversine formula.
const earthRadiusM = 6371000.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance in metres between two
// coordinates, computed with the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Bearing returns the initial bearing (forward azimuth) in degrees from the
// first coordinate to the second, normalised to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLambda := radians(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)
	return math.Mod(degrees(theta)+360, 360)
}

// SpreadStats summarises the spatial dispersion of a set of coordinates.
type SpreadStats struct {
	// CentroidLat and CentroidLon are the mean coordinate.
	CentroidLat float64
	CentroidLon float64

	// SpreadMeters is the maximum haversine distance from the centroid to
	// any single point.
	SpreadMeters float64

	// UniqueLocations counts distinct coordinates after rounding to five
	// decimal places (roughly one-metre precision).
	UniqueLocations int

	// Count is the number of points folded in.
	Count int
}

// Spread computes centroid and dispersion statistics for a set of points.
// An empty input yields a zero-valued SpreadStats.
func Spread(points []Point) SpreadStats {
	if len(points) == 0 {
		return SpreadStats{}
	}

	var sumLat, sumLon float64
	unique := make(map[string]struct{}, len(points))
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
		unique[GridKey(p.Lat, p.Lon, 5)] = struct{}{}
	}

	stats := SpreadStats{
		CentroidLat:     sumLat / float64(len(points)),
		CentroidLon:     sumLon / float64(len(points)),
		UniqueLocations: len(unique),
		Count:           len(points),
	}

	for _, p := range points {
		d := Distance(stats.CentroidLat, stats.CentroidLon, p.Lat, p.Lon)
		if d > stats.SpreadMeters {
			stats.SpreadMeters = d
		}
	}
	return stats
}

// GridKey rounds a coordinate pair to the given number of decimal places and
// returns a stable string key for it. Five decimals is roughly one metre of
// latitude, four decimals roughly eleven metres.
func GridKey(lat, lon float64, decimals int) string {
	scale := math.Pow(10, float64(decimals))
	return fmt.Sprintf("%.*f,%.*f",
		decimals, math.Round(lat*scale)/scale,
		decimals, math.Round(lon*scale)/scale)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
