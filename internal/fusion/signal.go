package fusion

import (
	"fmt"
	"math"
	"time"

	"github.com/armslength-data/sigint.report/internal/stats"
)

// analyzeSignalCorrelation tests whether two devices' RSSI traces rise and
// fall together. Devices carried by the same person (or mounted on the same
// vehicle) fade in and out of a sensor's view in lockstep, so their paired
// signal-strength series correlate strongly in either direction.
func (e *Engine) analyzeSignalCorrelation(a, b *Device, obsA, obsB, _ []Observation) *AnalysisResult {
	sigA := sortByTime(withSignal(obsA))
	sigB := sortByTime(withSignal(obsB))

	minReadings := e.tuning.GetMinSignalReadings()
	if len(sigA) < minReadings || len(sigB) < minReadings {
		return nil
	}

	xs, ys := pairSignalReadings(sigA, sigB, e.tuning.GetSignalPairWindow())
	if len(xs) < e.tuning.GetMinSignalPairs() {
		return nil
	}

	r := stats.Pearson(xs, ys)
	if math.Abs(r) < e.tuning.GetMinAbsCorrelation() {
		return nil
	}

	z, p := stats.FisherZTest(r, len(xs))
	if p > e.tuning.GetMaxCorrelationPValue() {
		return nil
	}

	lr := stats.PValueToLikelihoodRatio(p)
	posterior := stats.Posterior(e.tuning.GetSignalPrior(), lr)
	if posterior < e.tuning.GetPosteriorGate() {
		return nil
	}

	meanA, stdA := stats.MeanStdDev(xs)
	meanB, stdB := stats.MeanStdDev(ys)

	direction := "rise and fall together"
	if r < 0 {
		direction = "move in opposite directions"
	}
	reasoning := fmt.Sprintf(
		"signal strengths %s across %d time-aligned readings (r=%.2f)",
		direction, len(xs), r)

	evidence := StatisticalEvidence{
		Method:               "pearson_fisher_z_test",
		Description:          "Pearson correlation of nearest-neighbour time-paired RSSI readings, Fisher Z significance",
		LikelihoodRatio:      lr,
		PosteriorProbability: posterior,
		ConfidenceLevel:      stats.ConfidenceLevel(posterior),
		ProbabilityScale:     stats.ProbabilityScale(posterior),
		SampleSize:           len(xs),
		DegreesOfFreedom:     len(xs) - 2,
		NullHypothesis:       "the devices' signal strengths vary independently",
		AltHypothesis:        "the devices' signal strengths co-vary, consistent with shared carriage",
		TestStatistic:        z,
		PValue:               p,
		Observations: map[string]float64{
			"pearson_r":     r,
			"paired_counts": float64(len(xs)),
			"rssi_mean_a":   meanA,
			"rssi_stddev_a": stdA,
			"rssi_mean_b":   meanB,
			"rssi_stddev_b": stdB,
		},
	}

	return newResult(a, b, AssocSignalCorrelation, posterior, reasoning, evidence)
}

// pairSignalReadings matches each of a's readings to its nearest-in-time
// reading from b, keeping pairs closer than window. Both inputs must be
// sorted by timestamp. Each a-reading contributes at most one pair; b
// readings may be reused, which is fine for correlation purposes.
func pairSignalReadings(a, b []Observation, window time.Duration) (xs, ys []float64) {
	j := 0
	for i := range a {
		for j+1 < len(b) && absDuration(b[j+1].Timestamp.Sub(a[i].Timestamp)) <= absDuration(b[j].Timestamp.Sub(a[i].Timestamp)) {
			j++
		}
		if absDuration(b[j].Timestamp.Sub(a[i].Timestamp)) <= window {
			xs = append(xs, *a[i].SignalStrength)
			ys = append(ys, *b[j].SignalStrength)
		}
	}
	return xs, ys
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
