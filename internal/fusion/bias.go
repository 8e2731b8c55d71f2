package fusion

import "github.com/armslength-data/sigint.report/internal/geo"

// staticCollectionBias reports whether the apparent spatial relationship
// between two devices is an artifact of where the sensors sat rather than
// where the devices moved. A collector that never moves stamps every
// observation with the same coordinates, which would otherwise look like
// perfect co-location for every device it hears.
//
// The guard trips when:
//   - both devices were only ever seen at one (rounded) location; or
//   - the entire observation set has almost no spread, meaning the whole
//     dataset came from a single fixed collector; or
//   - both devices' centroids hug the global centroid and neither device
//     shows meaningful spread of its own.
//
// Every spatial analyzer must consult this guard before accepting a pair.
func (e *Engine) staticCollectionBias(obsA, obsB, all []Observation) bool {
	spreadA := geo.Spread(locatedPoints(obsA))
	spreadB := geo.Spread(locatedPoints(obsB))

	if spreadA.Count == 0 || spreadB.Count == 0 {
		return true
	}

	if spreadA.UniqueLocations <= 1 && spreadB.UniqueLocations <= 1 {
		return true
	}

	global := geo.Spread(locatedPoints(all))
	if global.Count == 0 {
		return true
	}
	if global.SpreadMeters < e.tuning.GetStaticGlobalSpreadMeters() {
		return true
	}

	centroidRadius := e.tuning.GetStaticCentroidRadiusMeters()
	deviceSpread := e.tuning.GetStaticDeviceSpreadMeters()

	aNearGlobal := geo.Distance(spreadA.CentroidLat, spreadA.CentroidLon,
		global.CentroidLat, global.CentroidLon) < centroidRadius
	bNearGlobal := geo.Distance(spreadB.CentroidLat, spreadB.CentroidLon,
		global.CentroidLat, global.CentroidLon) < centroidRadius

	if aNearGlobal && bNearGlobal &&
		spreadA.SpreadMeters < deviceSpread && spreadB.SpreadMeters < deviceSpread {
		return true
	}

	return false
}

// locatedPoints extracts the coordinates of all geotagged observations.
func locatedPoints(obs []Observation) []geo.Point {
	points := make([]geo.Point, 0, len(obs))
	for i := range obs {
		if obs[i].HasLocation() {
			points = append(points, geo.Point{Lat: *obs[i].Latitude, Lon: *obs[i].Longitude})
		}
	}
	return points
}
