package fusion

import (
	"math"
	"sort"
	"time"

	"github.com/armslength-data/sigint.report/internal/geo"
)

// Reading is one (position, signal strength, time) sample used for
// multilateration. The position is the sensor's vantage point at capture
// time; the RSSI proxies the range to the emitter.
type Reading struct {
	Lat  float64
	Lon  float64
	RSSI float64
	Time time.Time
}

// rssiToDistance converts a signal-strength reading into an estimated range
// in metres using the log-distance path-loss model:
//
//	distance = 10^((txPower - rssi) / (10 * pathLossExponent))
func rssiToDistance(rssi, txPowerDBm, pathLossExponent float64) float64 {
	return math.Pow(10, (txPowerDBm-rssi)/(10*pathLossExponent))
}

// RSSIToDistance converts an RSSI reading into an estimated range in metres
// using the engine's configured propagation model.
func (e *Engine) RSSIToDistance(rssi float64) float64 {
	return rssiToDistance(rssi, e.tuning.GetTxPowerDBm(), e.tuning.GetPathLossExponent())
}

// TriangulateFix computes a weighted-centroid position fix from two or more
// readings. Each reading is weighted by the inverse of its estimated range,
// so nearer readings dominate. The error radius is the largest disagreement
// between a reading's distance to the fix and its own range estimate, capped
// at the configured maximum so one outlier cannot blow up the geometry.
// Returns nil when fewer than two readings are supplied or the total weight
// degenerates to zero.
func (e *Engine) TriangulateFix(readings []Reading) *GeoFix {
	if len(readings) < 2 {
		return nil
	}

	txPower := e.tuning.GetTxPowerDBm()
	exponent := e.tuning.GetPathLossExponent()

	var sumLat, sumLon, sumWeight float64
	ranges := make([]float64, len(readings))
	for i, r := range readings {
		ranges[i] = rssiToDistance(r.RSSI, txPower, exponent)
		w := 1 / math.Max(1, ranges[i])
		sumLat += r.Lat * w
		sumLon += r.Lon * w
		sumWeight += w
	}
	if sumWeight == 0 || math.IsNaN(sumWeight) {
		return nil
	}

	fix := &GeoFix{
		Latitude:         sumLat / sumWeight,
		Longitude:        sumLon / sumWeight,
		ObservationCount: len(readings),
		Method:           "weighted_centroid_multilateration",
	}

	var maxResidual float64
	for i, r := range readings {
		actual := geo.Distance(r.Lat, r.Lon, fix.Latitude, fix.Longitude)
		residual := math.Abs(actual - ranges[i])
		if residual > maxResidual {
			maxResidual = residual
		}
	}
	fix.ErrorRadiusMeters = math.Min(maxResidual, e.tuning.GetMaxErrorRadiusMeters())

	positions := make(map[string]struct{}, len(readings))
	for _, r := range readings {
		positions[geo.GridKey(r.Lat, r.Lon, 4)] = struct{}{}
	}
	fix.SensorPositions = len(positions)

	return fix
}

// TriangulateDevice produces the best-estimate fix for a single device from
// its observation history. Readings are deduplicated to one per ~10 m grid
// cell, keeping the most recent per cell; with fewer than two distinct cells
// the fix degrades to an RSSI-weighted centroid over the raw readings.
// Confidence rises with the number of distinct sensor positions and falls
// with the mean residual, clamped to [20, 95]. Up to maxRangeEstimates
// per-reading range/bearing estimates are attached for explainability.
// Returns nil when no usable (geotagged + signal strength) readings exist.
func (e *Engine) TriangulateDevice(observations []Observation) *GeoFix {
	readings := usableReadings(observations)
	if len(readings) == 0 {
		return nil
	}

	cells := dedupeByCell(readings)

	var fix *GeoFix
	if len(cells) < 2 {
		fix = e.rssiWeightedCentroid(readings)
		if fix == nil {
			return nil
		}
	} else {
		fix = e.TriangulateFix(cells)
		if fix == nil {
			return nil
		}
		fix.ObservationCount = len(readings)
	}

	fix.Confidence = e.fixConfidence(fix, readings)
	fix.Estimates = e.rangeEstimates(readings, fix)
	return fix
}

// maxRangeEstimates caps the explainability payload on a device fix.
const maxRangeEstimates = 20

// usableReadings filters observations down to those carrying both a position
// and a signal-strength reading.
func usableReadings(observations []Observation) []Reading {
	readings := make([]Reading, 0, len(observations))
	for i := range observations {
		o := &observations[i]
		if !o.HasLocation() || o.SignalStrength == nil {
			continue
		}
		readings = append(readings, Reading{
			Lat:  *o.Latitude,
			Lon:  *o.Longitude,
			RSSI: *o.SignalStrength,
			Time: o.Timestamp,
		})
	}
	return readings
}

// dedupeByCell reduces readings to one per ~10 m grid cell, keeping the most
// recent reading in each cell. A static sensor hammering the same spot should
// count as one vantage point, not fifty.
func dedupeByCell(readings []Reading) []Reading {
	latest := make(map[string]Reading)
	for _, r := range readings {
		key := geo.GridKey(r.Lat, r.Lon, 4)
		if prev, ok := latest[key]; !ok || r.Time.After(prev.Time) {
			latest[key] = r
		}
	}
	cells := make([]Reading, 0, len(latest))
	for _, r := range latest {
		cells = append(cells, r)
	}
	// Map iteration order is random; sort for reproducible fixes.
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Lat != cells[j].Lat {
			return cells[i].Lat < cells[j].Lat
		}
		return cells[i].Lon < cells[j].Lon
	})
	return cells
}

// rssiWeightedCentroid is the degraded single-vantage-point fix: a centroid
// over all raw readings weighted by signal strength, where stronger signals
// pull the estimate harder.
func (e *Engine) rssiWeightedCentroid(readings []Reading) *GeoFix {
	var sumLat, sumLon, sumWeight float64
	for _, r := range readings {
		// Map RSSI (typically -100..-30 dBm) onto a positive weight.
		w := math.Max(1, 120+r.RSSI)
		sumLat += r.Lat * w
		sumLon += r.Lon * w
		sumWeight += w
	}
	if sumWeight == 0 {
		return nil
	}
	return &GeoFix{
		Latitude:          sumLat / sumWeight,
		Longitude:         sumLon / sumWeight,
		ErrorRadiusMeters: e.tuning.GetMaxErrorRadiusMeters(),
		SensorPositions:   1,
		ObservationCount:  len(readings),
		Method:            "rssi_weighted_centroid",
	}
}

// fixConfidence scores a fix in [20, 95]: more distinct sensor positions push
// it up, large mean residuals pull it down.
func (e *Engine) fixConfidence(fix *GeoFix, readings []Reading) int {
	confidence := 20.0 + 15.0*float64(fix.SensorPositions-1)

	var sumResidual float64
	for _, r := range readings {
		actual := geo.Distance(r.Lat, r.Lon, fix.Latitude, fix.Longitude)
		estimated := e.RSSIToDistance(r.RSSI)
		sumResidual += math.Abs(actual - estimated)
	}
	meanResidual := sumResidual / float64(len(readings))
	confidence -= meanResidual / 10.0

	return int(math.Round(math.Min(95, math.Max(20, confidence))))
}

// rangeEstimates builds the per-reading explainability payload: each
// reading's estimated range and the bearing from the reading towards the fix.
func (e *Engine) rangeEstimates(readings []Reading, fix *GeoFix) []RangeEstimate {
	n := len(readings)
	if n > maxRangeEstimates {
		n = maxRangeEstimates
	}
	estimates := make([]RangeEstimate, 0, n)
	for _, r := range readings[:n] {
		estimates = append(estimates, RangeEstimate{
			Latitude:    r.Lat,
			Longitude:   r.Lon,
			RSSI:        r.RSSI,
			RangeMeters: e.RSSIToDistance(r.RSSI),
			BearingDeg:  geo.Bearing(r.Lat, r.Lon, fix.Latitude, fix.Longitude),
			Timestamp:   r.Time,
		})
	}
	return estimates
}
