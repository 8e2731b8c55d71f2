package fusion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/armslength-data/sigint.report/internal/stats"
	"github.com/armslength-data/sigint.report/internal/units"
)

// Likelihood-ratio weights per shared frequency. A match inside a crowded
// consumer band (2.4 GHz WiFi, 5 GHz WiFi, 900 MHz ISM) is weak evidence;
// half the neighbourhood transmits there. A match on an oddball frequency
// outside those bands is rare and correspondingly informative.
const (
	inBandMatchWeight    = 1.5
	outOfBandMatchWeight = 6.0
)

// frequencyBinHz rounds frequencies to 0.1 MHz bins before intersecting.
const frequencyBinHz = 100_000.0

// analyzeFrequencySharing tests whether two devices transmit on the same
// frequencies. Evidence accumulates multiplicatively per shared bin, with
// out-of-band matches weighted well above consumer-band ones.
func (e *Engine) analyzeFrequencySharing(a, b *Device, obsA, obsB, _ []Observation) *AnalysisResult {
	freqsA := frequencyBins(obsA)
	freqsB := frequencyBins(obsB)
	if len(freqsA) == 0 || len(freqsB) == 0 {
		return nil
	}

	var shared []float64
	for bin := range freqsA {
		if _, ok := freqsB[bin]; ok {
			shared = append(shared, float64(bin)*frequencyBinHz)
		}
	}
	if len(shared) == 0 {
		return nil
	}
	sort.Float64s(shared)

	lr := 1.0
	inBand, outOfBand := 0, 0
	labels := make([]string, 0, len(shared))
	for _, hz := range shared {
		label := units.FormatFrequency(hz)
		if units.IsConsumerBand(hz) {
			lr *= inBandMatchWeight
			inBand++
			label += " (" + units.BandName(hz) + ")"
		} else {
			lr *= outOfBandMatchWeight
			outOfBand++
		}
		labels = append(labels, label)
	}
	if lr > stats.MaxLikelihoodRatio {
		lr = stats.MaxLikelihoodRatio
	}

	posterior := stats.Posterior(e.tuning.GetFrequencyPrior(), lr)
	if posterior < e.tuning.GetFrequencyPosteriorGate() {
		return nil
	}

	reasoning := fmt.Sprintf("devices share %d frequencies (%s)", len(shared), strings.Join(labels, ", "))
	if outOfBand > 0 {
		reasoning += fmt.Sprintf(", %d outside common consumer bands", outOfBand)
	}

	evidence := StatisticalEvidence{
		Method:               "shared_frequency_weighting",
		Description:          "intersects 0.1 MHz frequency bins, weighting matches outside consumer bands more heavily",
		LikelihoodRatio:      lr,
		PosteriorProbability: posterior,
		ConfidenceLevel:      stats.ConfidenceLevel(posterior),
		ProbabilityScale:     stats.ProbabilityScale(posterior),
		SampleSize:           len(shared),
		NullHypothesis:       "the devices' operating frequencies overlap by chance",
		AltHypothesis:        "the devices are configured or built to share frequencies",
		TestStatistic:        float64(len(shared)),
		Observations: map[string]float64{
			"shared_frequencies":   float64(len(shared)),
			"in_band_matches":      float64(inBand),
			"out_of_band_matches":  float64(outOfBand),
			"device_a_frequencies": float64(len(freqsA)),
			"device_b_frequencies": float64(len(freqsB)),
		},
		SharedFrequencies: labels,
	}

	return newResult(a, b, AssocFrequencySharing, posterior, reasoning, evidence)
}

// frequencyBins collects the distinct 0.1 MHz bins a device was seen
// transmitting on.
func frequencyBins(obs []Observation) map[int64]struct{} {
	bins := make(map[int64]struct{})
	for i := range obs {
		if obs[i].Frequency == nil || *obs[i].Frequency <= 0 {
			continue
		}
		bins[int64(math.Round(*obs[i].Frequency/frequencyBinHz))] = struct{}{}
	}
	return bins
}
