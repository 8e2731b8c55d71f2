package fusion

import (
	"fmt"
	"time"

	"github.com/armslength-data/sigint.report/internal/stats"
)

// analyzeTemporalCorrelation tests whether two devices appear and disappear
// together. For each of device A's observations it checks whether device B
// was also seen within a short activation window; the fraction that were is
// the observed sync rate. That rate is only evidence if it clearly exceeds
// the rate expected by chance given how densely B was being observed anyway.
func (e *Engine) analyzeTemporalCorrelation(a, b *Device, obsA, obsB, _ []Observation) *AnalysisResult {
	minObs := e.tuning.GetTemporalMinObservations()
	if len(obsA) < minObs || len(obsB) < minObs {
		return nil
	}

	timesA := sortByTime(obsA)
	timesB := sortByTime(obsB)

	first := timesA[0].Timestamp
	last := timesA[len(timesA)-1].Timestamp
	if timesB[0].Timestamp.Before(first) {
		first = timesB[0].Timestamp
	}
	if timesB[len(timesB)-1].Timestamp.After(last) {
		last = timesB[len(timesB)-1].Timestamp
	}
	span := last.Sub(first)
	if span < e.tuning.GetTemporalMinSpan() {
		return nil
	}

	window := e.tuning.GetActivationWindow()
	synced := 0
	j := 0
	for i := range timesA {
		for j+1 < len(timesB) && absDuration(timesB[j+1].Timestamp.Sub(timesA[i].Timestamp)) <= absDuration(timesB[j].Timestamp.Sub(timesA[i].Timestamp)) {
			j++
		}
		if absDuration(timesB[j].Timestamp.Sub(timesA[i].Timestamp)) <= window {
			synced++
		}
	}
	observedRate := float64(synced) / float64(len(timesA))
	if observedRate < e.tuning.GetMinSyncRate() {
		return nil
	}

	// Chance that a random instant in the span lands within one activation
	// window of some B observation, assuming B's sightings were uniform.
	expectedRate := float64(len(timesB)) * 2 * window.Seconds() / span.Seconds()
	if expectedRate > 1 {
		expectedRate = 1
	}
	if observedRate <= expectedRate {
		return nil
	}

	lr := observedRate / expectedRate
	if lr > stats.MaxLikelihoodRatio {
		lr = stats.MaxLikelihoodRatio
	}
	posterior := stats.Posterior(e.tuning.GetTemporalPrior(), lr)
	if posterior < e.tuning.GetPosteriorGate() {
		return nil
	}

	reasoning := fmt.Sprintf(
		"devices were active together in %.0f%% of sightings, against %.0f%% expected by chance over a %s span",
		observedRate*100, expectedRate*100, span.Round(time.Second))

	evidence := StatisticalEvidence{
		Method:               "activation_sync_rate_test",
		Description:          "fraction of one device's sightings with a matching sighting of the other within the activation window, against the chance rate",
		LikelihoodRatio:      lr,
		PosteriorProbability: posterior,
		ConfidenceLevel:      stats.ConfidenceLevel(posterior),
		ProbabilityScale:     stats.ProbabilityScale(posterior),
		SampleSize:           len(timesA),
		NullHypothesis:       "the devices' activity periods are independent",
		AltHypothesis:        "the devices activate and deactivate together",
		TestStatistic:        observedRate,
		Observations: map[string]float64{
			"observed_sync_rate": observedRate,
			"expected_sync_rate": expectedRate,
			"synced_sightings":   float64(synced),
			"span_seconds":       span.Seconds(),
		},
	}

	return newResult(a, b, AssocTemporal, posterior, reasoning, evidence)
}
