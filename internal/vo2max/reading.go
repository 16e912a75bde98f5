package vo2max

// Reading is a single observation from the gas-exchange sensor.
type Reading struct {
	VenturiAreaWide      float64 // m², before the constriction
	VenturiAreaNarrow    float64 // m², at the constriction
	O2Percent            float64 // measured oxygen concentration, percent
	DifferentialPressure float64 // Pa across the constriction, signed
	TimestampMs          uint64  // elapsed time since the start of the recording
}

// IsBreathing reports whether the pressure drop is large enough to count as airflow.
func (r Reading) IsBreathing() bool {
	p := r.DifferentialPressure
	if p < 0 {
		p = -p
	}
	return p > BreathingThresholdPa
}
