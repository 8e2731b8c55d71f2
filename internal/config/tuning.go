package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning represents the root configuration for the fusion engine's
// hand-tuned thresholds. The reference values are starting points, not
// derivations; every knob is exposed here so deployments can adjust them
// without a rebuild. The schema matches the /api/config endpoint so the same
// JSON serves startup configuration and inspection.
type Tuning struct {
	// Pair gating
	MinObservations *int `json:"min_observations,omitempty"`
	MinConfidence   *int `json:"min_confidence,omitempty"`

	// Collection-bias guard
	StaticGlobalSpreadMeters   *float64 `json:"static_global_spread_meters,omitempty"`
	StaticCentroidRadiusMeters *float64 `json:"static_centroid_radius_meters,omitempty"`
	StaticDeviceSpreadMeters   *float64 `json:"static_device_spread_meters,omitempty"`

	// Co-movement analyzer
	CoMovementWindow      *string  `json:"co_movement_window,omitempty"` // duration string like "5m"
	ProximityMeters       *float64 `json:"proximity_meters,omitempty"`
	MinBaselineMeters     *float64 `json:"min_baseline_meters,omitempty"`
	MaxDistanceRatio      *float64 `json:"max_distance_ratio,omitempty"`
	MinProximityRate      *float64 `json:"min_proximity_rate,omitempty"`
	CoMovementPrior       *float64 `json:"co_movement_prior,omitempty"`
	CoMovementMinGeotags  *int     `json:"co_movement_min_geotags,omitempty"`
	CoMovementMinUniqueLo *int     `json:"co_movement_min_unique_locations,omitempty"`

	// Signal-correlation analyzer
	SignalPairWindow   *string  `json:"signal_pair_window,omitempty"` // duration string like "10s"
	MinSignalPairs     *int     `json:"min_signal_pairs,omitempty"`
	MinSignalReadings  *int     `json:"min_signal_readings,omitempty"`
	MinAbsCorrelation  *float64 `json:"min_abs_correlation,omitempty"`
	MaxCorrelationPVal *float64 `json:"max_correlation_p_value,omitempty"`
	SignalPrior        *float64 `json:"signal_prior,omitempty"`

	// Frequency-sharing analyzer
	FrequencyPrior         *float64 `json:"frequency_prior,omitempty"`
	FrequencyPosteriorGate *float64 `json:"frequency_posterior_gate,omitempty"`

	// Temporal-correlation analyzer
	TemporalMinSpan  *string  `json:"temporal_min_span,omitempty"` // duration string like "5m"
	TemporalMinObs   *int     `json:"temporal_min_observations,omitempty"`
	ActivationWindow *string  `json:"activation_window,omitempty"` // duration string like "15s"
	MinSyncRate      *float64 `json:"min_sync_rate,omitempty"`
	TemporalPrior    *float64 `json:"temporal_prior,omitempty"`

	// Triangulated co-location analyzer
	ColocationSlot          *string  `json:"colocation_slot,omitempty"` // duration string like "10m"
	ColocationBaselineRate  *float64 `json:"colocation_baseline_rate,omitempty"`
	MinColocationRate       *float64 `json:"min_colocation_rate,omitempty"`
	ColocationPrior         *float64 `json:"colocation_prior,omitempty"`
	ColocationPosteriorGate *float64 `json:"colocation_posterior_gate,omitempty"`

	// Shared posterior gate for the remaining analyzers
	PosteriorGate *float64 `json:"posterior_gate,omitempty"`

	// RF propagation model
	TxPowerDBm           *float64 `json:"tx_power_dbm,omitempty"`
	PathLossExponent     *float64 `json:"path_loss_exponent,omitempty"`
	MaxErrorRadiusMeters *float64 `json:"max_error_radius_meters,omitempty"`
}

// EmptyTuning returns a Tuning with all fields unset. The Get* accessors
// provide the reference defaults for any field left nil, so partial configs
// are safe.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// LoadTuning loads a Tuning from a JSON file. The file must have a .json
// extension and be under 1MB.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Tuning) Validate() error {
	checkRate := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
		return nil
	}
	checkDuration := func(name string, v *string) error {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
		return nil
	}

	for _, check := range []error{
		checkRate("co_movement_prior", c.CoMovementPrior),
		checkRate("signal_prior", c.SignalPrior),
		checkRate("frequency_prior", c.FrequencyPrior),
		checkRate("temporal_prior", c.TemporalPrior),
		checkRate("colocation_prior", c.ColocationPrior),
		checkRate("posterior_gate", c.PosteriorGate),
		checkRate("frequency_posterior_gate", c.FrequencyPosteriorGate),
		checkRate("colocation_posterior_gate", c.ColocationPosteriorGate),
		checkRate("max_distance_ratio", c.MaxDistanceRatio),
		checkRate("min_proximity_rate", c.MinProximityRate),
		checkRate("min_sync_rate", c.MinSyncRate),
		checkRate("min_colocation_rate", c.MinColocationRate),
		checkRate("colocation_baseline_rate", c.ColocationBaselineRate),
		checkDuration("co_movement_window", c.CoMovementWindow),
		checkDuration("signal_pair_window", c.SignalPairWindow),
		checkDuration("temporal_min_span", c.TemporalMinSpan),
		checkDuration("activation_window", c.ActivationWindow),
		checkDuration("colocation_slot", c.ColocationSlot),
	} {
		if check != nil {
			return check
		}
	}

	if c.MinObservations != nil && *c.MinObservations < 1 {
		return fmt.Errorf("min_observations must be at least 1, got %d", *c.MinObservations)
	}
	if c.MinConfidence != nil && (*c.MinConfidence < 0 || *c.MinConfidence > 100) {
		return fmt.Errorf("min_confidence must be between 0 and 100, got %d", *c.MinConfidence)
	}
	if c.PathLossExponent != nil && *c.PathLossExponent <= 0 {
		return fmt.Errorf("path_loss_exponent must be positive, got %f", *c.PathLossExponent)
	}
	if c.MaxErrorRadiusMeters != nil && *c.MaxErrorRadiusMeters <= 0 {
		return fmt.Errorf("max_error_radius_meters must be positive, got %f", *c.MaxErrorRadiusMeters)
	}

	return nil
}

func (c *Tuning) duration(v *string, fallback time.Duration) time.Duration {
	if v == nil || *v == "" {
		return fallback
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fallback
	}
	return d
}

// GetMinObservations returns the per-device observation floor for pairing.
func (c *Tuning) GetMinObservations() int {
	if c.MinObservations == nil {
		return 3
	}
	return *c.MinObservations
}

// GetMinConfidence returns the confidence gate applied by the orchestrator.
func (c *Tuning) GetMinConfidence() int {
	if c.MinConfidence == nil {
		return 45
	}
	return *c.MinConfidence
}

// GetStaticGlobalSpreadMeters returns the global spread below which the whole
// dataset is treated as a single fixed collector.
func (c *Tuning) GetStaticGlobalSpreadMeters() float64 {
	if c.StaticGlobalSpreadMeters == nil {
		return 25.0
	}
	return *c.StaticGlobalSpreadMeters
}

// GetStaticCentroidRadiusMeters returns the radius around the global centroid
// inside which a device looks collector-bound.
func (c *Tuning) GetStaticCentroidRadiusMeters() float64 {
	if c.StaticCentroidRadiusMeters == nil {
		return 30.0
	}
	return *c.StaticCentroidRadiusMeters
}

// GetStaticDeviceSpreadMeters returns the per-device spread below which a
// device counts as observed from one vantage point.
func (c *Tuning) GetStaticDeviceSpreadMeters() float64 {
	if c.StaticDeviceSpreadMeters == nil {
		return 50.0
	}
	return *c.StaticDeviceSpreadMeters
}

// GetCoMovementWindow returns the sliding time window for pairing geotagged
// observations in the co-movement analyzer.
func (c *Tuning) GetCoMovementWindow() time.Duration {
	return c.duration(c.CoMovementWindow, 5*time.Minute)
}

// GetProximityMeters returns the distance under which a paired observation
// counts as "close".
func (c *Tuning) GetProximityMeters() float64 {
	if c.ProximityMeters == nil {
		return 50.0
	}
	return *c.ProximityMeters
}

// GetMinBaselineMeters returns the minimum meaningful baseline distance.
func (c *Tuning) GetMinBaselineMeters() float64 {
	if c.MinBaselineMeters == nil {
		return 50.0
	}
	return *c.MinBaselineMeters
}

// GetMaxDistanceRatio returns the paired/baseline ratio above which
// co-movement is rejected.
func (c *Tuning) GetMaxDistanceRatio() float64 {
	if c.MaxDistanceRatio == nil {
		return 0.5
	}
	return *c.MaxDistanceRatio
}

// GetMinProximityRate returns the minimum fraction of paired samples that must
// fall under the proximity threshold.
func (c *Tuning) GetMinProximityRate() float64 {
	if c.MinProximityRate == nil {
		return 0.4
	}
	return *c.MinProximityRate
}

// GetCoMovementPrior returns the prior probability for the co-movement test.
func (c *Tuning) GetCoMovementPrior() float64 {
	if c.CoMovementPrior == nil {
		return 0.05
	}
	return *c.CoMovementPrior
}

// GetCoMovementMinGeotags returns the geotagged-observation floor per device.
func (c *Tuning) GetCoMovementMinGeotags() int {
	if c.CoMovementMinGeotags == nil {
		return 3
	}
	return *c.CoMovementMinGeotags
}

// GetCoMovementMinUniqueLocations returns the unique-location floor per device.
func (c *Tuning) GetCoMovementMinUniqueLocations() int {
	if c.CoMovementMinUniqueLo == nil {
		return 2
	}
	return *c.CoMovementMinUniqueLo
}

// GetSignalPairWindow returns the nearest-neighbour matching window for RSSI
// time pairing.
func (c *Tuning) GetSignalPairWindow() time.Duration {
	return c.duration(c.SignalPairWindow, 10*time.Second)
}

// GetMinSignalPairs returns the minimum number of time-paired RSSI samples.
func (c *Tuning) GetMinSignalPairs() int {
	if c.MinSignalPairs == nil {
		return 5
	}
	return *c.MinSignalPairs
}

// GetMinSignalReadings returns the per-device RSSI reading floor.
func (c *Tuning) GetMinSignalReadings() int {
	if c.MinSignalReadings == nil {
		return 5
	}
	return *c.MinSignalReadings
}

// GetMinAbsCorrelation returns the |r| floor for signal correlation.
func (c *Tuning) GetMinAbsCorrelation() float64 {
	if c.MinAbsCorrelation == nil {
		return 0.4
	}
	return *c.MinAbsCorrelation
}

// GetMaxCorrelationPValue returns the p-value ceiling for the Fisher Z test.
func (c *Tuning) GetMaxCorrelationPValue() float64 {
	if c.MaxCorrelationPVal == nil {
		return 0.10
	}
	return *c.MaxCorrelationPVal
}

// GetSignalPrior returns the prior probability for the signal test.
func (c *Tuning) GetSignalPrior() float64 {
	if c.SignalPrior == nil {
		return 0.05
	}
	return *c.SignalPrior
}

// GetFrequencyPrior returns the prior probability for frequency sharing.
func (c *Tuning) GetFrequencyPrior() float64 {
	if c.FrequencyPrior == nil {
		return 0.04
	}
	return *c.FrequencyPrior
}

// GetFrequencyPosteriorGate returns the posterior gate for frequency sharing.
func (c *Tuning) GetFrequencyPosteriorGate() float64 {
	if c.FrequencyPosteriorGate == nil {
		return 0.35
	}
	return *c.FrequencyPosteriorGate
}

// GetTemporalMinSpan returns the minimum combined time span for the temporal
// analyzer.
func (c *Tuning) GetTemporalMinSpan() time.Duration {
	return c.duration(c.TemporalMinSpan, 5*time.Minute)
}

// GetTemporalMinObservations returns the per-device observation floor for the
// temporal analyzer.
func (c *Tuning) GetTemporalMinObservations() int {
	if c.TemporalMinObs == nil {
		return 6
	}
	return *c.TemporalMinObs
}

// GetActivationWindow returns the window within which two device timestamps
// count as synchronised activity.
func (c *Tuning) GetActivationWindow() time.Duration {
	return c.duration(c.ActivationWindow, 15*time.Second)
}

// GetMinSyncRate returns the observed sync-rate floor.
func (c *Tuning) GetMinSyncRate() float64 {
	if c.MinSyncRate == nil {
		return 0.6
	}
	return *c.MinSyncRate
}

// GetTemporalPrior returns the prior probability for the temporal test.
func (c *Tuning) GetTemporalPrior() float64 {
	if c.TemporalPrior == nil {
		return 0.05
	}
	return *c.TemporalPrior
}

// GetColocationSlot returns the coarse time-slot width for per-slot
// triangulation.
func (c *Tuning) GetColocationSlot() time.Duration {
	return c.duration(c.ColocationSlot, 10*time.Minute)
}

// GetColocationBaselineRate returns the chance co-location rate used as the
// likelihood-ratio denominator.
func (c *Tuning) GetColocationBaselineRate() float64 {
	if c.ColocationBaselineRate == nil {
		return 0.05
	}
	return *c.ColocationBaselineRate
}

// GetMinColocationRate returns the minimum observed co-location rate.
func (c *Tuning) GetMinColocationRate() float64 {
	if c.MinColocationRate == nil {
		return 0.30
	}
	return *c.MinColocationRate
}

// GetColocationPrior returns the prior probability for the co-location test.
func (c *Tuning) GetColocationPrior() float64 {
	if c.ColocationPrior == nil {
		return 0.05
	}
	return *c.ColocationPrior
}

// GetColocationPosteriorGate returns the posterior gate for co-location.
func (c *Tuning) GetColocationPosteriorGate() float64 {
	if c.ColocationPosteriorGate == nil {
		return 0.25
	}
	return *c.ColocationPosteriorGate
}

// GetPosteriorGate returns the posterior gate shared by the co-movement,
// signal, and temporal analyzers.
func (c *Tuning) GetPosteriorGate() float64 {
	if c.PosteriorGate == nil {
		return 0.30
	}
	return *c.PosteriorGate
}

// GetTxPowerDBm returns the assumed transmit power for the path-loss model.
func (c *Tuning) GetTxPowerDBm() float64 {
	if c.TxPowerDBm == nil {
		return -40.0
	}
	return *c.TxPowerDBm
}

// GetPathLossExponent returns the path-loss exponent. 2.0 is free space; the
// default 2.7 suits cluttered urban collection.
func (c *Tuning) GetPathLossExponent() float64 {
	if c.PathLossExponent == nil {
		return 2.7
	}
	return *c.PathLossExponent
}

// GetMaxErrorRadiusMeters returns the cap on a fix's error radius.
func (c *Tuning) GetMaxErrorRadiusMeters() float64 {
	if c.MaxErrorRadiusMeters == nil {
		return 500.0
	}
	return *c.MaxErrorRadiusMeters
}
