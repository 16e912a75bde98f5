package vo2max

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput         = errors.New("no sensor readings provided")
	ErrInvalidWeight      = errors.New("weight must be positive")
	ErrInvalidConfig      = errors.New("invalid calculator configuration")
	ErrInvalidWindow      = errors.New("implausible window values")
	ErrDegenerateGeometry = errors.New("degenerate venturi geometry")
)

// InvalidReason names the plausibility check a window failed.
type InvalidReason string

const (
	ReasonLowVentilation InvalidReason = "low_ventilation"
	ReasonO2TooHigh      InvalidReason = "o2_above_range"
	ReasonO2TooLow       InvalidReason = "o2_below_range"
)

// InvalidWindowError describes a window whose values are not physiological.
type InvalidWindowError struct {
	Reason       InvalidReason
	MinuteVolume float64
	O2Percent    float64
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("%s: %s (minute volume %.3f L/min, O2 %.2f%%)",
		ErrInvalidWindow, e.Reason, e.MinuteVolume, e.O2Percent)
}

func (e *InvalidWindowError) Unwrap() error {
	return ErrInvalidWindow
}
