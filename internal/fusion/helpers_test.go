package fusion

import (
	"time"

	"github.com/armslength-data/sigint.report/internal/config"
)

var testBase = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func newTestEngine() *Engine {
	return NewEngine(config.EmptyTuning())
}

// obsAt builds a geotagged observation with a signal reading.
func obsAt(deviceID int64, at time.Time, lat, lon, rssi float64) Observation {
	return Observation{
		DeviceID:       deviceID,
		Timestamp:      at,
		Latitude:       f64(lat),
		Longitude:      f64(lon),
		SignalStrength: f64(rssi),
	}
}

// obsSignal builds a non-geotagged observation carrying only a signal reading.
func obsSignal(deviceID int64, at time.Time, rssi float64) Observation {
	return Observation{
		DeviceID:       deviceID,
		Timestamp:      at,
		SignalStrength: f64(rssi),
	}
}

// obsFreq builds an observation carrying only a frequency.
func obsFreq(deviceID int64, at time.Time, hz float64) Observation {
	return Observation{
		DeviceID:  deviceID,
		Timestamp: at,
		Frequency: f64(hz),
	}
}

// metersToLat converts a north-south offset in metres to degrees latitude.
func metersToLat(m float64) float64 { return m / 111_320.0 }

// walkingTour lays out n waypoints spaced stepMeters apart going north from
// (40, -75).
func walkingTour(n int, stepMeters float64) [][2]float64 {
	points := make([][2]float64, n)
	for i := range points {
		points[i] = [2]float64{40.0 + metersToLat(float64(i)*stepMeters), -75.0}
	}
	return points
}

// coMovingPair builds two devices' observations visiting the same waypoints
// at the same times, with device B offset a few metres from device A.
func coMovingPair(idA, idB int64, waypoints [][2]float64, interval time.Duration) (obsA, obsB []Observation) {
	for i, p := range waypoints {
		at := testBase.Add(time.Duration(i) * interval)
		obsA = append(obsA, obsAt(idA, at, p[0], p[1], -60))
		obsB = append(obsB, obsAt(idB, at, p[0]+metersToLat(5), p[1], -62))
	}
	return obsA, obsB
}
