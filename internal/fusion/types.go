// Package fusion implements the probabilistic association and geolocation
// engine. It consumes an immutable snapshot of devices and their observations
// and produces confidence-scored association hypotheses plus best-estimate
// position fixes. Every verdict carries the statistical evidence behind it so
// it can be audited independently.
//
// Insufficient or ambiguous evidence is the expected common case: analyzers
// return nil rather than an error when a hypothesis is unsupported.
package fusion

import "time"

// Device identifies a physical emitter seen by the collectors. The engine
// only reads devices; association records reference device IDs and the store
// derives link bookkeeping from them.
type Device struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	MACAddress   string    `json:"mac_address"`
	SignalType   string    `json:"signal_type"` // e.g. "wifi", "bluetooth", "sdr"
	DeviceType   string    `json:"device_type"`
	Manufacturer string    `json:"manufacturer"`
	Protocol     string    `json:"protocol"`
	Encryption   string    `json:"encryption"`
	Tracked      bool      `json:"tracked"`
	Flagged      bool      `json:"flagged"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	LinkedIDs    []int64   `json:"linked_device_ids,omitempty"`
}

// Observation is one timestamped detection of a device by a sensor.
// Optional fields are nil when the collector did not report them; analyzers
// treat a missing field as "unusable for this particular test", never as an
// error.
type Observation struct {
	ID             int64     `json:"id"`
	DeviceID       int64     `json:"device_id"`
	Timestamp      time.Time `json:"timestamp"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	SignalStrength *float64  `json:"signal_strength,omitempty"` // dBm
	Frequency      *float64  `json:"frequency,omitempty"`       // Hz
	Channel        *int      `json:"channel,omitempty"`
	Protocol       *string   `json:"protocol,omitempty"`
	Encryption     *string   `json:"encryption,omitempty"`
	Heading        *float64  `json:"heading,omitempty"`
	Speed          *float64  `json:"speed,omitempty"`
	Altitude       *float64  `json:"altitude,omitempty"`
}

// HasLocation reports whether this observation carries coordinates.
func (o *Observation) HasLocation() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// AssociationType tags which analyzer produced an association.
type AssociationType string

// Association types, one per analyzer. The orchestrator runs analyzers in
// this order.
const (
	AssocCoMovement        AssociationType = "co_movement"
	AssocSignalCorrelation AssociationType = "signal_correlation"
	AssocFrequencySharing  AssociationType = "frequency_sharing"
	AssocTemporal          AssociationType = "temporal_correlation"
	AssocTriangulated      AssociationType = "triangulated_colocation"
)

// StatisticalEvidence is the audit trail attached to every association: which
// test ran, its hypotheses, the raw statistic, and the Bayesian bookkeeping
// that produced the posterior.
type StatisticalEvidence struct {
	Method               string             `json:"method"`
	Description          string             `json:"description"`
	LikelihoodRatio      float64            `json:"likelihood_ratio"`
	PosteriorProbability float64            `json:"posterior_probability"`
	ConfidenceLevel      string             `json:"confidence_level"`
	ProbabilityScale     string             `json:"probability_scale"`
	SampleSize           int                `json:"sample_size"`
	DegreesOfFreedom     int                `json:"degrees_of_freedom"`
	NullHypothesis       string             `json:"null_hypothesis"`
	AltHypothesis        string             `json:"alt_hypothesis"`
	TestStatistic        float64            `json:"test_statistic"`
	PValue               float64            `json:"p_value"`
	Observations         map[string]float64 `json:"observations,omitempty"`
	SharedFrequencies    []string           `json:"shared_frequencies,omitempty"`
}

// AnalysisResult is one emitted association hypothesis. Device IDs are
// normalised so DeviceID1 < DeviceID2; the pair is unordered.
type AnalysisResult struct {
	DeviceID1  int64               `json:"device_id_1"`
	DeviceID2  int64               `json:"device_id_2"`
	Type       AssociationType     `json:"association_type"`
	Confidence int                 `json:"confidence"` // 0-100
	Reasoning  string              `json:"reasoning"`
	Evidence   StatisticalEvidence `json:"evidence"`
}

// PairKey returns the dedup key for this result's unordered (pair, type).
func (r *AnalysisResult) PairKey() string {
	return pairKey(r.DeviceID1, r.DeviceID2, r.Type)
}

// DeviceAssociation is a persisted AnalysisResult. Associations are
// append-only: the engine never mutates or deletes one, it only decides
// whether a new (pair, type) deserves a row.
type DeviceAssociation struct {
	ID         int64               `json:"id"`
	DeviceID1  int64               `json:"device_id_1"`
	DeviceID2  int64               `json:"device_id_2"`
	Type       AssociationType     `json:"association_type"`
	Confidence int                 `json:"confidence"`
	Reasoning  string              `json:"reasoning"`
	Evidence   StatisticalEvidence `json:"evidence"`
	CreatedAt  time.Time           `json:"created_at"`
}

// PairKey returns the dedup key for this association's unordered (pair, type).
func (a *DeviceAssociation) PairKey() string {
	return pairKey(a.DeviceID1, a.DeviceID2, a.Type)
}

// RangeEstimate is one per-reading range/bearing estimate included in a
// GeoFix for explainability.
type RangeEstimate struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	RSSI        float64   `json:"rssi"`
	RangeMeters float64   `json:"range_meters"`
	BearingDeg  float64   `json:"bearing_deg"` // from the reading towards the fix
	Timestamp   time.Time `json:"timestamp"`
}

// GeoFix is a computed position estimate with an error radius. It is a
// transient result, never persisted by the engine.
type GeoFix struct {
	Latitude          float64         `json:"latitude"`
	Longitude         float64         `json:"longitude"`
	ErrorRadiusMeters float64         `json:"error_radius_meters"`
	Confidence        int             `json:"confidence"` // 0-100
	SensorPositions   int             `json:"sensor_positions"`
	ObservationCount  int             `json:"observation_count"`
	Method            string          `json:"method"`
	Estimates         []RangeEstimate `json:"estimates,omitempty"`
}
