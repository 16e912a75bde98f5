package vo2max

import (
	"fmt"
	"math"
)

const (
	DefaultAirDensity        = 1.204 // kg/m³, dry air at 20 °C
	DefaultDrynessCorrection = 1.0
	DefaultAmbientO2Percent  = 20.93
	DefaultWindowMs          = 30000
)

// Config holds the physical constants and the reduction interval used by a Calculator.
// It is read-only once passed to NewCalculator.
type Config struct {
	AirDensity        float64 // kg/m³
	DrynessCorrection float64 // multiplier from measured to dry-air volume
	AmbientO2Percent  float64 // reference O2 of inspired air
	WindowMs          uint64  // interval between V̇O₂ reductions
}

// DefaultConfig returns sea-level room-air defaults with a 30 s window.
func DefaultConfig() Config {
	return Config{
		AirDensity:        DefaultAirDensity,
		DrynessCorrection: DefaultDrynessCorrection,
		AmbientO2Percent:  DefaultAmbientO2Percent,
		WindowMs:          DefaultWindowMs,
	}
}

// Validate checks that every field can be used by the flow and gas-exchange equations.
func (c Config) Validate() error {
	switch {
	case !(c.AirDensity > 0) || math.IsInf(c.AirDensity, 0):
		return fmt.Errorf("%w: air density must be positive, got %v", ErrInvalidConfig, c.AirDensity)
	case !(c.DrynessCorrection > 0) || math.IsInf(c.DrynessCorrection, 0):
		return fmt.Errorf("%w: dryness correction must be positive, got %v", ErrInvalidConfig, c.DrynessCorrection)
	case !(c.AmbientO2Percent > 0) || c.AmbientO2Percent > 100:
		return fmt.Errorf("%w: ambient O2 must be in (0, 100], got %v", ErrInvalidConfig, c.AmbientO2Percent)
	case c.WindowMs == 0:
		return fmt.Errorf("%w: window must be at least 1 ms", ErrInvalidConfig)
	}
	return nil
}

// windowsPerMinute scales a per-window quantity to a per-minute one.
func (c Config) windowsPerMinute() float64 {
	return 60000.0 / float64(c.WindowMs)
}
