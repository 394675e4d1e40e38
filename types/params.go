package types

// RadioParams is the radio parameter snapshot attached to every sample
// chunk and carried by every Context packet. The stream identifier is
// stream-level configuration, not a radio parameter, so it lives in
// StreamMeta instead.
type RadioParams struct {
	// CenterFrequencyHz is the RF reference frequency.
	CenterFrequencyHz float64 `yaml:"center_frequency_hz" json:"center_frequency_hz" msgpack:"center_frequency_hz"`
	// SampleRateHz is the complex sample rate.
	SampleRateHz float64 `yaml:"sample_rate_hz" json:"sample_rate_hz" msgpack:"sample_rate_hz"`
	// BandwidthHz is the occupied bandwidth.
	BandwidthHz float64 `yaml:"bandwidth_hz" json:"bandwidth_hz" msgpack:"bandwidth_hz"`
	// GainDB is the front-end gain.
	GainDB float64 `yaml:"gain_db" json:"gain_db" msgpack:"gain_db"`
	// ReferenceLevelDBm is the full-scale reference level.
	ReferenceLevelDBm float64 `yaml:"reference_level_dbm" json:"reference_level_dbm" msgpack:"reference_level_dbm"`
}

// Equal reports whether two snapshots carry identical values.
// Exact comparison is intentional: parameters arrive from configuration
// or recorded captures, not from analog measurement, so float jitter is
// not a concern and any difference is a real retune.
func (p RadioParams) Equal(other RadioParams) bool {
	return p == other
}
