package fusion

import (
	"context"
	"fmt"
	"sort"

	"github.com/armslength-data/sigint.report/internal/config"
	"github.com/armslength-data/sigint.report/internal/monitoring"
)

// Engine runs the pairwise association analyzers and the multilateration
// routine over an immutable snapshot of devices and observations. It holds no
// mutable state beyond its tuning, so concurrent invocations are safe.
type Engine struct {
	tuning *config.Tuning
}

// NewEngine creates an Engine with the given tuning. A nil tuning uses the
// reference defaults for every threshold.
func NewEngine(tuning *config.Tuning) *Engine {
	if tuning == nil {
		tuning = config.EmptyTuning()
	}
	return &Engine{tuning: tuning}
}

// Tuning returns the engine's tuning configuration.
func (e *Engine) Tuning() *config.Tuning {
	return e.tuning
}

// analyzer is one pairwise hypothesis test. Analyzers are pure functions of
// their inputs: they return nil when the evidence is insufficient or the
// hypothesis is unsupported, never an error.
type analyzer func(a, b *Device, obsA, obsB, all []Observation) *AnalysisResult

// AnalyzeDeviceAssociations enumerates unordered device pairs, runs every
// analyzer against each pair, and returns the surviving hypotheses ranked by
// descending confidence.
//
// A result survives when its confidence clears the configured floor and its
// (pair, type) key is not already present in existing. The analyzer order is
// fixed for reproducibility, though no analyzer depends on another's output.
//
// The context is checked between device pairs (not mid-pair): on cancellation
// the results accumulated so far are returned. Emission is idempotent per
// (pair, type), so a cancelled-and-rerun batch produces a safe superset,
// never duplicates.
func (e *Engine) AnalyzeDeviceAssociations(
	ctx context.Context,
	devices []Device,
	observations []Observation,
	existing []DeviceAssociation,
) []AnalysisResult {
	obsByDevice := make(map[int64][]Observation, len(devices))
	for i := range observations {
		obsByDevice[observations[i].DeviceID] = append(obsByDevice[observations[i].DeviceID], observations[i])
	}

	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[existing[i].PairKey()] = struct{}{}
	}

	// Fixed pair enumeration order for reproducible output.
	ordered := make([]Device, len(devices))
	copy(ordered, devices)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	analyzers := []analyzer{
		e.analyzeCoMovement,
		e.analyzeSignalCorrelation,
		e.analyzeFrequencySharing,
		e.analyzeTemporalCorrelation,
		e.analyzeTriangulatedColocation,
	}

	minObs := e.tuning.GetMinObservations()
	minConfidence := e.tuning.GetMinConfidence()

	var results []AnalysisResult
	cancelled := false
	for i := 0; i < len(ordered) && !cancelled; i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ctx.Err() != nil {
				monitoring.Logf("association analysis cancelled after %d results", len(results))
				cancelled = true
				break
			}

			a, b := &ordered[i], &ordered[j]
			obsA := obsByDevice[a.ID]
			obsB := obsByDevice[b.ID]
			if len(obsA) < minObs || len(obsB) < minObs {
				continue
			}

			for _, analyze := range analyzers {
				result := analyze(a, b, obsA, obsB, observations)
				if result == nil {
					continue
				}
				if result.Confidence < minConfidence {
					continue
				}
				if _, dup := seen[result.PairKey()]; dup {
					continue
				}
				seen[result.PairKey()] = struct{}{}
				results = append(results, *result)
			}
		}
	}

	// Rank by confidence; ties break on the pair key so reruns are stable.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].PairKey() < results[j].PairKey()
	})

	return results
}

// newResult assembles an AnalysisResult with normalised device ordering and
// the confidence/probability buckets filled in from the posterior.
func newResult(a, b *Device, assocType AssociationType, posterior float64, reasoning string, evidence StatisticalEvidence) *AnalysisResult {
	id1, id2 := a.ID, b.ID
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	confidence := int(posterior * 100)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return &AnalysisResult{
		DeviceID1:  id1,
		DeviceID2:  id2,
		Type:       assocType,
		Confidence: confidence,
		Reasoning:  reasoning,
		Evidence:   evidence,
	}
}

// pairKey builds the unordered (pair, type) dedup key.
func pairKey(id1, id2 int64, assocType AssociationType) string {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return fmt.Sprintf("%d:%d:%s", id1, id2, assocType)
}

// geotagged returns the observations carrying coordinates.
func geotagged(obs []Observation) []Observation {
	out := make([]Observation, 0, len(obs))
	for i := range obs {
		if obs[i].HasLocation() {
			out = append(out, obs[i])
		}
	}
	return out
}

// withSignal returns the observations carrying a signal-strength reading.
func withSignal(obs []Observation) []Observation {
	out := make([]Observation, 0, len(obs))
	for i := range obs {
		if obs[i].SignalStrength != nil {
			out = append(out, obs[i])
		}
	}
	return out
}

// sortByTime returns a copy of obs ordered by timestamp.
func sortByTime(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	copy(out, obs)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
