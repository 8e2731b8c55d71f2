package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armslength-data/sigint.report/internal/units"
)

func testDevices() (*Device, *Device) {
	return &Device{ID: 1, MACAddress: "AA:BB:CC:00:00:01", SignalType: "wifi"},
		&Device{ID: 2, MACAddress: "AA:BB:CC:00:00:02", SignalType: "wifi"}
}

func TestCoMovementDetectsTravelCompanions(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	obsA, obsB := coMovingPair(a.ID, b.ID, walkingTour(6, 300), 10*time.Minute)
	all := append(append([]Observation{}, obsA...), obsB...)

	result := e.analyzeCoMovement(a, b, obsA, obsB, all)
	require.NotNil(t, result, "devices visiting the same waypoints at the same times must associate")

	assert.Equal(t, AssocCoMovement, result.Type)
	assert.Equal(t, int64(1), result.DeviceID1)
	assert.Equal(t, int64(2), result.DeviceID2)
	assert.GreaterOrEqual(t, result.Evidence.PosteriorProbability, 0.30)
	assert.LessOrEqual(t, result.Evidence.PosteriorProbability, 0.99)
	assert.NotEmpty(t, result.Reasoning)
	assert.Equal(t, "paired_distance_ratio_test", result.Evidence.Method)
	assert.InDelta(t, 1.0, result.Evidence.Observations["proximity_rate"], 1e-9)
}

func TestCoMovementRejectsShuffledTracks(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	waypoints := walkingTour(6, 300)
	obsA, _ := coMovingPair(a.ID, b.ID, waypoints, 10*time.Minute)

	// Same timestamps, but B visits the waypoints in a scrambled order: the
	// devices are in the same area yet never together.
	perm := []int{3, 4, 5, 0, 1, 2}
	var obsB []Observation
	for i, p := range perm {
		at := testBase.Add(time.Duration(i) * 10 * time.Minute)
		obsB = append(obsB, obsAt(b.ID, at, waypoints[p][0], waypoints[p][1], -62))
	}
	all := append(append([]Observation{}, obsA...), obsB...)

	assert.Nil(t, e.analyzeCoMovement(a, b, obsA, obsB, all))
}

func TestCoMovementRejectsStaticCollection(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Apparent perfect proximity, but the collector never moved.
	var obsA, obsB []Observation
	for i := 0; i < 6; i++ {
		at := testBase.Add(time.Duration(i) * 10 * time.Minute)
		obsA = append(obsA, obsAt(a.ID, at, 40.0, -75.0, -60))
		obsB = append(obsB, obsAt(b.ID, at, 40.0, -75.0, -62))
	}
	all := append(append([]Observation{}, obsA...), obsB...)

	assert.Nil(t, e.analyzeCoMovement(a, b, obsA, obsB, all))
}

func TestCoMovementRejectsTooFewGeotags(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	obsA, obsB := coMovingPair(a.ID, b.ID, walkingTour(2, 300), 10*time.Minute)
	all := append(append([]Observation{}, obsA...), obsB...)

	assert.Nil(t, e.analyzeCoMovement(a, b, obsA, obsB, all))
}

func TestSignalCorrelationIdenticalSeries(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	levels := []float64{-40, -52, -45, -61, -55, -70, -66, -43, -58, -48}
	var obsA, obsB []Observation
	for i, dbm := range levels {
		at := testBase.Add(time.Duration(i) * 5 * time.Second)
		obsA = append(obsA, obsSignal(a.ID, at, dbm))
		obsB = append(obsB, obsSignal(b.ID, at, dbm))
	}

	result := e.analyzeSignalCorrelation(a, b, obsA, obsB, nil)
	require.NotNil(t, result, "identical time-aligned RSSI traces must associate")

	assert.Equal(t, AssocSignalCorrelation, result.Type)
	assert.InDelta(t, 1.0, result.Evidence.Observations["pearson_r"], 1e-6)
	assert.LessOrEqual(t, result.Evidence.PosteriorProbability, 0.99)
	assert.LessOrEqual(t, result.Confidence, 100)

	// Identical series: identical summary statistics.
	assert.InDelta(t, result.Evidence.Observations["rssi_mean_a"],
		result.Evidence.Observations["rssi_mean_b"], 1e-9)
	assert.InDelta(t, result.Evidence.Observations["rssi_stddev_a"],
		result.Evidence.Observations["rssi_stddev_b"], 1e-9)
	assert.Greater(t, result.Evidence.Observations["rssi_stddev_a"], 0.0)
}

func TestSignalCorrelationUncorrelatedSeries(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Orthogonal square waves: exactly zero correlation.
	xs := []float64{-40, -60, -40, -60, -40, -60, -40, -60}
	ys := []float64{-40, -40, -60, -60, -40, -40, -60, -60}
	var obsA, obsB []Observation
	for i := range xs {
		at := testBase.Add(time.Duration(i) * 5 * time.Second)
		obsA = append(obsA, obsSignal(a.ID, at, xs[i]))
		obsB = append(obsB, obsSignal(b.ID, at, ys[i]))
	}

	assert.Nil(t, e.analyzeSignalCorrelation(a, b, obsA, obsB, nil))
}

func TestSignalCorrelationRejectsSparsePairs(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Readings exist but never within the pairing window of each other.
	var obsA, obsB []Observation
	for i := 0; i < 6; i++ {
		obsA = append(obsA, obsSignal(a.ID, testBase.Add(time.Duration(i)*time.Minute), -50-float64(i)))
		obsB = append(obsB, obsSignal(b.ID, testBase.Add(time.Duration(i)*time.Minute+30*time.Second), -50-float64(i)))
	}

	assert.Nil(t, e.analyzeSignalCorrelation(a, b, obsA, obsB, nil))
}

func TestFrequencySharingOutOfBandMatches(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Two shared frequencies well outside the consumer bands.
	var obsA, obsB []Observation
	for i := 0; i < 3; i++ {
		at := testBase.Add(time.Duration(i) * time.Minute)
		obsA = append(obsA, obsFreq(a.ID, at, 433.92*units.MHz), obsFreq(a.ID, at, 868.30*units.MHz))
		obsB = append(obsB, obsFreq(b.ID, at, 433.92*units.MHz), obsFreq(b.ID, at, 868.30*units.MHz))
	}

	result := e.analyzeFrequencySharing(a, b, obsA, obsB, nil)
	require.NotNil(t, result, "shared oddball frequencies must associate")

	assert.Equal(t, AssocFrequencySharing, result.Type)
	assert.Len(t, result.Evidence.SharedFrequencies, 2)
	assert.InDelta(t, 2, result.Evidence.Observations["out_of_band_matches"], 1e-9)
	assert.GreaterOrEqual(t, result.Evidence.PosteriorProbability, e.tuning.GetFrequencyPosteriorGate())
}

func TestFrequencySharingLabelsConsumerBands(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Two oddball frequencies carry the pair over the gate; the extra WiFi
	// channel match rides along and gets its band called out in the label.
	shared := []float64{433.92 * units.MHz, 868.30 * units.MHz, units.ChannelToFrequency(6)}
	var obsA, obsB []Observation
	for _, hz := range shared {
		obsA = append(obsA, obsFreq(a.ID, testBase, hz))
		obsB = append(obsB, obsFreq(b.ID, testBase, hz))
	}

	result := e.analyzeFrequencySharing(a, b, obsA, obsB, nil)
	require.NotNil(t, result)

	require.Len(t, result.Evidence.SharedFrequencies, 3)
	assert.Contains(t, result.Evidence.SharedFrequencies, "433.9 MHz")
	assert.Contains(t, result.Evidence.SharedFrequencies, "2.437 GHz (2.4GHz ISM)")
	assert.InDelta(t, 1, result.Evidence.Observations["in_band_matches"], 1e-9)
}

func TestFrequencySharingInBandOnlyIsWeak(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Sharing WiFi channel 6 means nothing; half the street does.
	hz := units.ChannelToFrequency(6)
	obsA := []Observation{obsFreq(a.ID, testBase, hz)}
	obsB := []Observation{obsFreq(b.ID, testBase, hz)}

	assert.Nil(t, e.analyzeFrequencySharing(a, b, obsA, obsB, nil))
}

func TestFrequencySharingDisjointSets(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	obsA := []Observation{obsFreq(a.ID, testBase, 433.92*units.MHz)}
	obsB := []Observation{obsFreq(b.ID, testBase, 915.00*units.MHz)}

	assert.Nil(t, e.analyzeFrequencySharing(a, b, obsA, obsB, nil))
}

func TestTemporalCorrelationSyncedActivity(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Eight sightings over ~105 minutes; B always appears within seconds
	// of A despite the long gaps.
	var obsA, obsB []Observation
	for i := 0; i < 8; i++ {
		at := testBase.Add(time.Duration(i) * 15 * time.Minute)
		obsA = append(obsA, obsSignal(a.ID, at, -55))
		obsB = append(obsB, obsSignal(b.ID, at.Add(3*time.Second), -60))
	}

	result := e.analyzeTemporalCorrelation(a, b, obsA, obsB, nil)
	require.NotNil(t, result, "devices that always appear together must associate")

	assert.Equal(t, AssocTemporal, result.Type)
	assert.InDelta(t, 1.0, result.Evidence.Observations["observed_sync_rate"], 1e-9)
	assert.Greater(t, result.Evidence.Observations["observed_sync_rate"],
		result.Evidence.Observations["expected_sync_rate"])
}

func TestTemporalCorrelationUnsyncedActivity(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Same cadence, but B trails A by a full minute: outside the window.
	var obsA, obsB []Observation
	for i := 0; i < 8; i++ {
		at := testBase.Add(time.Duration(i) * 15 * time.Minute)
		obsA = append(obsA, obsSignal(a.ID, at, -55))
		obsB = append(obsB, obsSignal(b.ID, at.Add(time.Minute), -60))
	}

	assert.Nil(t, e.analyzeTemporalCorrelation(a, b, obsA, obsB, nil))
}

func TestTemporalCorrelationRejectsShortSpan(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Everything inside two minutes: too short to mean anything.
	var obsA, obsB []Observation
	for i := 0; i < 8; i++ {
		at := testBase.Add(time.Duration(i) * 15 * time.Second)
		obsA = append(obsA, obsSignal(a.ID, at, -55))
		obsB = append(obsB, obsSignal(b.ID, at, -60))
	}

	assert.Nil(t, e.analyzeTemporalCorrelation(a, b, obsA, obsB, nil))
}

// colocatedSlotObservations builds two devices' observations across two time
// slots, each slot around its own waypoint, with two readings per device per
// slot.
func colocatedSlotObservations(idA, idB int64, apart bool) (obsA, obsB []Observation) {
	slotStarts := []time.Time{
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC),
	}
	for s, start := range slotStarts {
		lat := 40.0 + metersToLat(float64(s)*500)
		latB := lat
		if apart {
			latB = lat + metersToLat(400)
		}
		for r := 0; r < 2; r++ {
			at := start.Add(time.Duration(r) * time.Minute)
			jitter := metersToLat(float64(2*r-1) * 15)
			obsA = append(obsA, obsAt(idA, at, lat+jitter, -75.0, -50))
			obsB = append(obsB, obsAt(idB, at, latB-jitter, -75.0, -52))
		}
	}
	return obsA, obsB
}

func TestTriangulatedColocationSharedSlots(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	obsA, obsB := colocatedSlotObservations(a.ID, b.ID, false)
	all := append(append([]Observation{}, obsA...), obsB...)

	result := e.analyzeTriangulatedColocation(a, b, obsA, obsB, all)
	require.NotNil(t, result, "independent fixes landing on the same spot must associate")

	assert.Equal(t, AssocTriangulated, result.Type)
	assert.InDelta(t, 2, result.Evidence.Observations["shared_slots"], 1e-9)
	assert.InDelta(t, 1.0, result.Evidence.Observations["colocation_rate"], 1e-9)
}

func TestTriangulatedColocationSeparatedFixes(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	obsA, obsB := colocatedSlotObservations(a.ID, b.ID, true)
	all := append(append([]Observation{}, obsA...), obsB...)

	assert.Nil(t, e.analyzeTriangulatedColocation(a, b, obsA, obsB, all))
}

func TestTriangulatedColocationSingleVantageSlots(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Each slot's readings come from one vantage point, so each per-slot
	// fix has a tight residual. Devices a constant 400m apart must not
	// co-locate just because their fixes degraded to a single cell.
	slotStarts := []time.Time{testBase, testBase.Add(10 * time.Minute)}
	var obsA, obsB []Observation
	for s, start := range slotStarts {
		lat := 40.0 + metersToLat(float64(s)*500)
		for r := 0; r < 2; r++ {
			at := start.Add(time.Duration(r) * time.Minute)
			obsA = append(obsA, obsAt(a.ID, at, lat, -75.0, -50))
			obsB = append(obsB, obsAt(b.ID, at, lat+metersToLat(400), -75.0, -52))
		}
	}
	all := append(append([]Observation{}, obsA...), obsB...)

	assert.Nil(t, e.analyzeTriangulatedColocation(a, b, obsA, obsB, all))
}

func TestTriangulatedColocationRejectsSingleSlot(t *testing.T) {
	e := newTestEngine()
	a, b := testDevices()

	// Enough movement to clear the bias guard, but only one shared slot.
	var obsA, obsB []Observation
	for r := 0; r < 3; r++ {
		at := testBase.Add(time.Duration(r) * time.Minute)
		jitter := metersToLat(float64(r) * 60)
		obsA = append(obsA, obsAt(a.ID, at, 40.0+jitter, -75.0, -50))
		obsB = append(obsB, obsAt(b.ID, at, 40.0-jitter, -75.0, -52))
	}
	all := append(append([]Observation{}, obsA...), obsB...)

	assert.Nil(t, e.analyzeTriangulatedColocation(a, b, obsA, obsB, all))
}
