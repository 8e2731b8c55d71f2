package fusion

import (
	"fmt"
	"sort"
	"time"

	"github.com/armslength-data/sigint.report/internal/geo"
	"github.com/armslength-data/sigint.report/internal/stats"
)

// colocationMarginFloorMeters is the minimum separation margin between two
// fixes before they can count as co-located, no matter how tight their error
// radii claim to be.
const colocationMarginFloorMeters = 30.0

// analyzeTriangulatedColocation tests whether two devices keep resolving to
// the same place. Observations are bucketed into coarse time slots; for each
// slot where both devices have enough readings, an independent position fix
// is computed per device and the two fixes compared. Fixes closer than a
// margin derived from their combined error radii count as co-located.
func (e *Engine) analyzeTriangulatedColocation(a, b *Device, obsA, obsB, all []Observation) *AnalysisResult {
	if e.staticCollectionBias(obsA, obsB, all) {
		return nil
	}

	slot := e.tuning.GetColocationSlot()
	slotsA := bucketBySlot(obsA, slot)
	slotsB := bucketBySlot(obsB, slot)

	type slotPair struct {
		separation float64
		margin     float64
		colocated  bool
	}

	slots := make([]int64, 0, len(slotsA))
	for key := range slotsA {
		if _, ok := slotsB[key]; ok {
			slots = append(slots, key)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	var pairs []slotPair
	for _, key := range slots {
		// Raw multilateration per slot, not TriangulateDevice: the
		// single-vantage fallback pins its error radius at the cap,
		// which would inflate the margin to the cap for stationary
		// collectors.
		fixA := e.TriangulateFix(usableReadings(slotsA[key]))
		fixB := e.TriangulateFix(usableReadings(slotsB[key]))
		if fixA == nil || fixB == nil {
			continue
		}
		separation := geo.Distance(fixA.Latitude, fixA.Longitude, fixB.Latitude, fixB.Longitude)
		margin := (fixA.ErrorRadiusMeters + fixB.ErrorRadiusMeters) / 2
		if margin < colocationMarginFloorMeters {
			margin = colocationMarginFloorMeters
		}
		pairs = append(pairs, slotPair{
			separation: separation,
			margin:     margin,
			colocated:  separation <= margin,
		})
	}

	if len(pairs) < 2 {
		return nil
	}

	colocated := 0
	var totalSeparation float64
	for _, p := range pairs {
		if p.colocated {
			colocated++
		}
		totalSeparation += p.separation
	}
	observedRate := float64(colocated) / float64(len(pairs))
	if observedRate < e.tuning.GetMinColocationRate() {
		return nil
	}

	baseline := e.tuning.GetColocationBaselineRate()
	lr := observedRate / baseline
	if lr > stats.MaxLikelihoodRatio {
		lr = stats.MaxLikelihoodRatio
	}
	posterior := stats.Posterior(e.tuning.GetColocationPrior(), lr)
	if posterior < e.tuning.GetColocationPosteriorGate() {
		return nil
	}

	reasoning := fmt.Sprintf(
		"independent position fixes placed the devices at the same location in %d of %d shared time slots (mean separation %.0fm)",
		colocated, len(pairs), totalSeparation/float64(len(pairs)))

	evidence := StatisticalEvidence{
		Method:               "triangulated_fix_separation_test",
		Description:          "compares independently triangulated per-slot position fixes against their combined error radii",
		LikelihoodRatio:      lr,
		PosteriorProbability: posterior,
		ConfidenceLevel:      stats.ConfidenceLevel(posterior),
		ProbabilityScale:     stats.ProbabilityScale(posterior),
		SampleSize:           len(pairs),
		NullHypothesis:       "the devices' positions coincide no more often than chance",
		AltHypothesis:        "the devices occupy the same physical location",
		TestStatistic:        observedRate,
		Observations: map[string]float64{
			"shared_slots":      float64(len(pairs)),
			"colocated_slots":   float64(colocated),
			"colocation_rate":   observedRate,
			"baseline_rate":     baseline,
			"mean_separation_m": totalSeparation / float64(len(pairs)),
		},
	}

	return newResult(a, b, AssocTriangulated, posterior, reasoning, evidence)
}

// bucketBySlot groups geotagged observations carrying a signal reading into
// coarse time slots keyed by the slot's unix index. Slots below two readings
// are dropped; a single reading cannot support a fix.
func bucketBySlot(obs []Observation, slot time.Duration) map[int64][]Observation {
	buckets := make(map[int64][]Observation)
	for i := range obs {
		if !obs[i].HasLocation() || obs[i].SignalStrength == nil {
			continue
		}
		key := obs[i].Timestamp.Unix() / int64(slot.Seconds())
		buckets[key] = append(buckets[key], obs[i])
	}
	for key, bucket := range buckets {
		if len(bucket) < 2 {
			delete(buckets, key)
		}
	}
	return buckets
}
