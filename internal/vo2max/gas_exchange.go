package vo2max

const (
	// haldaneN2Factor converts the expired N₂ fraction into the inspired O₂ fraction.
	haldaneN2Factor = 0.265

	minMinuteVolume = 0.1 // L/min
	maxO2Percent    = 21.0
	minO2Percent    = 10.0

	millilitresPerLitre = 1000.0
)

// GasExchangeReducer turns one window of accumulated volume into an oxygen uptake rate.
type GasExchangeReducer struct {
	cfg Config
}

// NewGasExchangeReducer returns a reducer bound to cfg.
func NewGasExchangeReducer(cfg Config) GasExchangeReducer {
	return GasExchangeReducer{cfg: cfg}
}

// MinuteVolume normalises a window's volume (L) to dry-air litres per minute.
func (g GasExchangeReducer) MinuteVolume(volumeL float64) float64 {
	return volumeL * g.cfg.windowsPerMinute() * g.cfg.DrynessCorrection
}

// Reduce applies the Haldane transformation to a window and returns V̇O₂ in
// mL·min⁻¹·kg⁻¹. Implausible windows return an *InvalidWindowError.
// weightKg must be positive.
func (g GasExchangeReducer) Reduce(volumeL, o2Percent, weightKg float64) (float64, error) {
	// CO₂ is estimated from the O₂ deficit; there is no CO₂ sensor.
	co2 := g.cfg.AmbientO2Percent - o2Percent
	n2 := 100.0 - o2Percent - co2

	minuteVolume := g.MinuteVolume(volumeL)
	if reason, ok := checkPlausible(minuteVolume, o2Percent); !ok {
		return 0, &InvalidWindowError{
			Reason:       reason,
			MinuteVolume: minuteVolume,
			O2Percent:    o2Percent,
		}
	}

	o2Consumption := minuteVolume * (n2/100.0*haldaneN2Factor - o2Percent/100.0)
	return o2Consumption * millilitresPerLitre / weightKg, nil
}

func checkPlausible(minuteVolume, o2Percent float64) (InvalidReason, bool) {
	switch {
	case !(minuteVolume >= minMinuteVolume):
		return ReasonLowVentilation, false
	case o2Percent > maxO2Percent:
		return ReasonO2TooHigh, false
	case !(o2Percent >= minO2Percent):
		return ReasonO2TooLow, false
	}
	return "", true
}
