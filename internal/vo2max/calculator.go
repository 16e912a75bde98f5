package vo2max

import (
	"errors"
	"math"

	"go.uber.org/zap"
)

// Calculator computes V̇O₂max from an ordered recording.
// A Calculator holds no per-call state and may be shared between goroutines.
type Calculator struct {
	cfg     Config
	flow    FlowIntegrator
	reducer GasExchangeReducer
	logger  *zap.Logger
}

// NewCalculator validates cfg and returns a Calculator. A nil logger disables logging.
func NewCalculator(cfg Config, logger *zap.Logger) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		cfg:     cfg,
		flow:    NewFlowIntegrator(cfg.AirDensity),
		reducer: NewGasExchangeReducer(cfg),
		logger:  logger,
	}, nil
}

// Config returns the configuration the Calculator was built with.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Calculate returns the highest valid V̇O₂ (mL·min⁻¹·kg⁻¹) over all completed
// windows, or 0 when none was valid.
func (c *Calculator) Calculate(readings []Reading, weightKg float64) (float64, error) {
	res, err := c.Analyze(readings, weightKg)
	if err != nil {
		return 0, err
	}
	return res.VO2Max, nil
}

// Analyze runs the same pass as Calculate and also reports every reduced window.
// Readings must be ordered by timestamp. The trailing window that has not yet
// reached the window length is not reduced.
func (c *Calculator) Analyze(readings []Reading, weightKg float64) (*Result, error) {
	if len(readings) == 0 {
		return nil, ErrEmptyInput
	}
	if !(weightKg > 0) || math.IsInf(weightKg, 0) {
		return nil, ErrInvalidWeight
	}

	state := newWindowState(readings[0].TimestampMs)
	res := &Result{ReadingCount: len(readings)}

	for _, r := range readings {
		c.accumulate(state, res, r)

		if !state.windowComplete(r.TimestampMs, c.cfg.WindowMs) {
			continue
		}
		window := c.reduceWindow(state, r, weightKg)
		res.Windows = append(res.Windows, window)
		if window.Valid && window.VO2 > state.maxVO2 {
			state.maxVO2 = window.VO2
		}
		state.reset(r.TimestampMs)
	}

	last := readings[len(readings)-1].TimestampMs
	if last > state.windowStartMs {
		res.DiscardedTailMs = last - state.windowStartMs
	}
	res.VO2Max = state.maxVO2

	c.logger.Debug("Recording analyzed",
		zap.Int("readings", res.ReadingCount),
		zap.Int("windows", len(res.Windows)),
		zap.Int("valid_windows", res.ValidWindows()),
		zap.Int("degenerate_readings", res.DegenerateReadings),
		zap.Uint64("discarded_tail_ms", res.DiscardedTailMs),
		zap.Float64("vo2max", res.VO2Max),
	)
	return res, nil
}

// accumulate integrates one reading into the current window.
func (c *Calculator) accumulate(state *windowState, res *Result, r Reading) {
	elapsed := state.elapsedSinceFlow(r.TimestampMs)
	state.lastFlowTsMs = r.TimestampMs

	if !r.IsBreathing() {
		return
	}
	res.BreathingReadings++

	volume, err := c.flow.Integrate(r, elapsed)
	if err != nil {
		if res.DegenerateReadings == 0 {
			c.logger.Warn("Venturi geometry cannot produce a flow, treating readings as zero flow",
				zap.Uint64("timestamp_ms", r.TimestampMs),
				zap.Float64("area_wide", r.VenturiAreaWide),
				zap.Float64("area_narrow", r.VenturiAreaNarrow),
			)
		}
		res.DegenerateReadings++
		return
	}
	state.accumulatedVolume += volume
}

// reduceWindow closes the current window using the boundary reading's O2.
func (c *Calculator) reduceWindow(state *windowState, r Reading, weightKg float64) WindowResult {
	window := WindowResult{
		StartMs:      state.windowStartMs,
		EndMs:        r.TimestampMs,
		VolumeL:      state.accumulatedVolume,
		MinuteVolume: c.reducer.MinuteVolume(state.accumulatedVolume),
		O2Percent:    r.O2Percent,
	}

	vo2, err := c.reducer.Reduce(state.accumulatedVolume, r.O2Percent, weightKg)
	var invalid *InvalidWindowError
	switch {
	case errors.As(err, &invalid):
		window.Reason = invalid.Reason
		c.logger.Debug("Window rejected",
			zap.Uint64("window_start_ms", window.StartMs),
			zap.Uint64("window_end_ms", window.EndMs),
			zap.String("reason", string(invalid.Reason)),
			zap.Float64("minute_volume", invalid.MinuteVolume),
			zap.Float64("o2_percent", invalid.O2Percent),
		)
	case err != nil:
		c.logger.Error("Unexpected reduction failure", zap.Error(err))
	default:
		window.VO2 = vo2
		window.Valid = true
	}
	return window
}
