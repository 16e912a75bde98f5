package vo2max

import "math"

// BreathingThresholdPa is the pressure magnitude at or below which the subject is
// treated as not breathing.
const BreathingThresholdPa = 1.0

// FlowIntegrator turns venturi pressure readings into breathed volume.
type FlowIntegrator struct {
	airDensity float64
}

// NewFlowIntegrator returns an integrator for air of the given density (kg/m³).
func NewFlowIntegrator(airDensity float64) FlowIntegrator {
	return FlowIntegrator{airDensity: airDensity}
}

// FlowRate returns the volumetric airflow through the venturi in m³/s.
//
// Bernoulli across the constriction combined with continuity between the two
// cross-sections gives the mass flow sqrt(Δp·ρ / (1/A₂² − 1/A₁²)); dividing by ρ
// yields the volumetric flow.
func (f FlowIntegrator) FlowRate(r Reading) (float64, error) {
	wide, narrow := r.VenturiAreaWide, r.VenturiAreaNarrow
	if !(wide > 0) || !(narrow > 0) || narrow >= wide || math.IsInf(wide, 0) {
		return 0, ErrDegenerateGeometry
	}

	denominator := 1/(narrow*narrow) - 1/(wide*wide)
	if !(denominator > 0) || math.IsInf(denominator, 0) {
		return 0, ErrDegenerateGeometry
	}

	massFlow := math.Sqrt(math.Abs(r.DifferentialPressure) * f.airDensity / denominator)
	rate := massFlow / f.airDensity
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, ErrDegenerateGeometry
	}
	return rate, nil
}

// Integrate returns the volume in litres breathed over elapsedMs at the reading's
// flow rate. Readings below the breathing threshold contribute nothing.
// m³/s × ms is numerically litres, so no scaling is applied here.
func (f FlowIntegrator) Integrate(r Reading, elapsedMs uint64) (float64, error) {
	if !r.IsBreathing() {
		return 0, nil
	}
	rate, err := f.FlowRate(r)
	if err != nil {
		return 0, err
	}
	return rate * float64(elapsedMs), nil
}
