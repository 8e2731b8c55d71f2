package fusion

import (
	"fmt"
	"math"

	"github.com/armslength-data/sigint.report/internal/geo"
	"github.com/armslength-data/sigint.report/internal/stats"
)

// analyzeCoMovement tests whether two devices travel together. For every
// cross pair of geotagged observations it measures the haversine distance and
// buckets it as "paired" (timestamps within the co-movement window) or
// "baseline" (outside it). Devices that move together are systematically
// closer in paired samples than in baseline samples.
//
// The test is rejected outright when the bias guard trips, when either device
// lacks movement of its own, or when the baseline distances are too small for
// "closer than baseline" to mean anything.
func (e *Engine) analyzeCoMovement(a, b *Device, obsA, obsB, all []Observation) *AnalysisResult {
	geoA := geotagged(obsA)
	geoB := geotagged(obsB)

	minGeotags := e.tuning.GetCoMovementMinGeotags()
	if len(geoA) < minGeotags || len(geoB) < minGeotags {
		return nil
	}

	if e.staticCollectionBias(obsA, obsB, all) {
		return nil
	}

	minUnique := e.tuning.GetCoMovementMinUniqueLocations()
	spreadA := geo.Spread(locatedPoints(geoA))
	spreadB := geo.Spread(locatedPoints(geoB))
	if spreadA.UniqueLocations < minUnique || spreadB.UniqueLocations < minUnique {
		return nil
	}

	window := e.tuning.GetCoMovementWindow()
	var paired, baseline []float64
	for i := range geoA {
		for j := range geoB {
			d := geo.Distance(*geoA[i].Latitude, *geoA[i].Longitude,
				*geoB[j].Latitude, *geoB[j].Longitude)
			dt := geoA[i].Timestamp.Sub(geoB[j].Timestamp)
			if dt < 0 {
				dt = -dt
			}
			if dt <= window {
				paired = append(paired, d)
			} else {
				baseline = append(baseline, d)
			}
		}
	}
	if len(paired) == 0 || len(baseline) == 0 {
		return nil
	}

	meanPaired := stats.Mean(paired)
	meanBaseline := stats.Mean(baseline)
	if meanBaseline < e.tuning.GetMinBaselineMeters() {
		// The whole collection area is tiny; proximity carries no signal.
		return nil
	}

	distanceRatio := meanPaired / meanBaseline
	if distanceRatio >= e.tuning.GetMaxDistanceRatio() {
		return nil
	}

	proximityMeters := e.tuning.GetProximityMeters()
	near := 0
	for _, d := range paired {
		if d <= proximityMeters {
			near++
		}
	}
	proximityRate := float64(near) / float64(len(paired))
	if proximityRate < e.tuning.GetMinProximityRate() {
		return nil
	}

	n := len(paired)
	z := (1 - distanceRatio) * math.Sqrt(float64(n))
	p := stats.TwoTailedP(z)
	lr := stats.PValueToLikelihoodRatio(p)
	prior := e.tuning.GetCoMovementPrior()
	posterior := stats.Posterior(prior, lr)
	if posterior < e.tuning.GetPosteriorGate() {
		return nil
	}

	reasoning := fmt.Sprintf(
		"devices were within %.0fm of each other in %.0f%% of time-aligned sightings; paired distances averaged %.0fm against a %.0fm baseline",
		proximityMeters, proximityRate*100, meanPaired, meanBaseline)

	evidence := StatisticalEvidence{
		Method:               "paired_distance_ratio_test",
		Description:          "compares distances between time-aligned sightings against the background distance distribution",
		LikelihoodRatio:      lr,
		PosteriorProbability: posterior,
		ConfidenceLevel:      stats.ConfidenceLevel(posterior),
		ProbabilityScale:     stats.ProbabilityScale(posterior),
		SampleSize:           n,
		DegreesOfFreedom:     n - 1,
		NullHypothesis:       "the devices move independently; time-aligned sightings are no closer than baseline",
		AltHypothesis:        "the devices move together; time-aligned sightings are systematically closer",
		TestStatistic:        z,
		PValue:               p,
		Observations: map[string]float64{
			"paired_samples":       float64(len(paired)),
			"baseline_samples":     float64(len(baseline)),
			"mean_paired_meters":   meanPaired,
			"mean_baseline_meters": meanBaseline,
			"distance_ratio":       distanceRatio,
			"proximity_rate":       proximityRate,
		},
	}

	return newResult(a, b, AssocCoMovement, posterior, reasoning, evidence)
}
