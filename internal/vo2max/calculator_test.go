package vo2max

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCalculator(t *testing.T, cfg Config) *Calculator {
	t.Helper()
	calc, err := NewCalculator(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return calc
}

// steadyRecording produces readings every stepMs from 0 to durationMs inclusive.
func steadyRecording(durationMs, stepMs uint64, dp, o2 float64) []Reading {
	readings := make([]Reading, 0, durationMs/stepMs+1)
	for ts := uint64(0); ts <= durationMs; ts += stepMs {
		readings = append(readings, breathingReading(ts, dp, o2))
	}
	return readings
}

func TestNewCalculator_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowMs = 0
	_, err := NewCalculator(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.AirDensity = 0
	_, err = NewCalculator(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	calc, err := NewCalculator(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), calc.Config())
}

func TestCalculate_EmptyInput(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())

	_, err := calc.Calculate(nil, 70)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = calc.Calculate([]Reading{}, 70)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCalculate_InvalidWeight(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())
	readings := []Reading{breathingReading(0, 50, 16)}

	for _, w := range []float64{0, -5} {
		_, err := calc.Calculate(readings, w)
		assert.ErrorIs(t, err, ErrInvalidWeight, "weight=%v", w)
	}
}

func TestCalculate_SingleReadingIsZero(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())

	vo2, err := calc.Calculate([]Reading{breathingReading(0, 50, 16)}, 70)
	require.NoError(t, err)
	assert.Zero(t, vo2)
}

func TestCalculate_AllWindowsInvalidYieldsZero(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())
	readings := steadyRecording(120000, 500, 0.5, 15)

	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	assert.Exactly(t, 0.0, res.VO2Max)
	require.NotEmpty(t, res.Windows)
	for _, w := range res.Windows {
		assert.False(t, w.Valid)
		assert.Equal(t, ReasonLowVentilation, w.Reason)
	}
	assert.Equal(t, 1.0, res.InvalidWindowRate())
	assert.Zero(t, res.BreathingReadings)
}

func TestCalculate_InvalidWindowNeverBeatsValidMax(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())

	first := steadyRecording(31000, 1000, 50, 16.5)
	// Second window has implausibly high O2 at its boundary.
	var second []Reading
	for ts := uint64(32000); ts <= 62000; ts += 1000 {
		second = append(second, breathingReading(ts, 200, 22))
	}

	res, err := calc.Analyze(append(first, second...), 70)
	require.NoError(t, err)
	require.Len(t, res.Windows, 2)
	assert.True(t, res.Windows[0].Valid)
	assert.False(t, res.Windows[1].Valid)
	assert.Equal(t, ReasonO2TooHigh, res.Windows[1].Reason)
	assert.Equal(t, res.Windows[0].VO2, res.VO2Max)
}

func TestCalculate_TwoWindowScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AirDensity = 1.2
	cfg.WindowMs = 30000
	calc := newTestCalculator(t, cfg)

	var readings []Reading
	// First window: breathing for 15 s, then quiet; closes at 31 s with O2 16.5.
	for ts := uint64(0); ts <= 31000; ts += 1000 {
		dp := 50.0
		if ts > 15000 {
			dp = 0
		}
		readings = append(readings, breathingReading(ts, dp, 16.5))
	}
	// Second window: breathing throughout; closes at 62 s with O2 14.0.
	for ts := uint64(32000); ts <= 62000; ts += 1000 {
		readings = append(readings, breathingReading(ts, 50, 14.0))
	}

	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	require.Len(t, res.Windows, 2)

	w1, w2 := res.Windows[0], res.Windows[1]
	assert.Equal(t, uint64(0), w1.StartMs)
	assert.Equal(t, uint64(31000), w1.EndMs)
	assert.Equal(t, uint64(31000), w2.StartMs)
	assert.Equal(t, uint64(62000), w2.EndMs)
	require.True(t, w1.Valid)
	require.True(t, w2.Valid)

	rate := expectedFlowRate(50, 1.2, testAreaWide, testAreaNarrow)
	assert.InDelta(t, rate*15000, w1.VolumeL, 1e-9)
	assert.InDelta(t, rate*31000, w2.VolumeL, 1e-9)

	n2 := 100 - cfg.AmbientO2Percent
	want := func(volume, o2 float64) float64 {
		return volume * 2 * (n2/100*0.265 - o2/100) * 1000 / 70
	}
	assert.InDelta(t, want(w1.VolumeL, 16.5), w1.VO2, 1e-9)
	assert.InDelta(t, want(w2.VolumeL, 14.0), w2.VO2, 1e-9)

	assert.Greater(t, w2.VO2, w1.VO2)
	assert.Equal(t, w2.VO2, res.VO2Max)

	vo2, err := calc.Calculate(readings, 70)
	require.NoError(t, err)
	assert.Equal(t, res.VO2Max, vo2)
}

func TestCalculate_WindowLengthDoesNotChangeResult(t *testing.T) {
	readings := steadyRecording(120000, 100, 50, 16.5)

	cfg30 := DefaultConfig()
	cfg30.WindowMs = 30000
	cfg15 := DefaultConfig()
	cfg15.WindowMs = 15000

	vo2At30, err := newTestCalculator(t, cfg30).Calculate(readings, 70)
	require.NoError(t, err)
	vo2At15, err := newTestCalculator(t, cfg15).Calculate(readings, 70)
	require.NoError(t, err)

	require.Greater(t, vo2At30, 0.0)
	assert.InEpsilon(t, vo2At30, vo2At15, 0.01)
}

func TestCalculate_TrailingPartialWindowDiscarded(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())
	// One complete window closing at 31 s, then 20 s of heavy breathing that never closes.
	readings := steadyRecording(31000, 1000, 50, 16.5)
	for ts := uint64(32000); ts <= 51000; ts += 1000 {
		readings = append(readings, breathingReading(ts, 500, 12))
	}

	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Equal(t, uint64(20000), res.DiscardedTailMs)
	assert.Equal(t, res.Windows[0].VO2, res.VO2Max)
}

func TestCalculate_BoundaryReadingBelongsToClosingWindow(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())
	// Exactly window_ms elapsed does not close the window.
	readings := []Reading{
		breathingReading(0, 50, 16),
		breathingReading(30000, 50, 16),
	}
	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	assert.Empty(t, res.Windows)

	readings = append(readings, breathingReading(30001, 50, 16))
	res, err = calc.Analyze(readings, 70)
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)

	rate := expectedFlowRate(50, DefaultAirDensity, testAreaWide, testAreaNarrow)
	assert.InDelta(t, rate*30001, res.Windows[0].VolumeL, 1e-9)
}

func TestCalculate_QuietGapIsNotIntegrated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowMs = 60000
	calc := newTestCalculator(t, cfg)

	readings := []Reading{
		breathingReading(0, 50, 16),
		breathingReading(1000, 50, 16),
		breathingReading(30000, 0, 16), // not breathing, advances the flow timer
		breathingReading(31000, 50, 16),
		breathingReading(61000, 0, 16),
	}
	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)

	rate := expectedFlowRate(50, DefaultAirDensity, testAreaWide, testAreaNarrow)
	assert.InDelta(t, rate*2000, res.Windows[0].VolumeL, 1e-9)
	assert.Equal(t, 3, res.BreathingReadings)
}

func TestCalculate_DegenerateGeometryTreatedAsZeroFlow(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())

	readings := steadyRecording(31000, 1000, 50, 16.5)
	for i := 5; i < 10; i++ {
		readings[i].VenturiAreaNarrow = readings[i].VenturiAreaWide
	}

	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	assert.Equal(t, 5, res.DegenerateReadings)
	require.Len(t, res.Windows, 1)

	rate := expectedFlowRate(50, DefaultAirDensity, testAreaWide, testAreaNarrow)
	assert.InDelta(t, rate*26000, res.Windows[0].VolumeL, 1e-9)
	assert.True(t, res.Windows[0].Valid)
}

func TestCalculate_OutOfOrderTimestampAddsNoVolume(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())

	readings := []Reading{
		breathingReading(10000, 50, 16),
		breathingReading(5000, 50, 16),
		breathingReading(41000, 0, 16),
	}
	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	require.Len(t, res.Windows, 1)
	assert.Equal(t, uint64(10000), res.Windows[0].StartMs)
	assert.Zero(t, res.Windows[0].VolumeL)
}

func TestCalculate_IsIdempotentAndConcurrencySafe(t *testing.T) {
	calc := newTestCalculator(t, DefaultConfig())
	readings := steadyRecording(95000, 250, 35, 15.5)

	want, err := calc.Calculate(readings, 80)
	require.NoError(t, err)
	require.Greater(t, want, 0.0)

	again, err := calc.Calculate(readings, 80)
	require.NoError(t, err)
	assert.Equal(t, want, again)

	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = calc.Calculate(readings, 80)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestCalculate_NeverNegative(t *testing.T) {
	cfg := DefaultConfig()
	calc := newTestCalculator(t, cfg)
	// O2 above ambient but within range gives a negative uptake, which must not win.
	readings := steadyRecording(95000, 1000, 50, 21.0)

	res, err := calc.Analyze(readings, 70)
	require.NoError(t, err)
	require.NotEmpty(t, res.Windows)
	assert.True(t, res.Windows[0].Valid)
	assert.Less(t, res.Windows[0].VO2, 0.0)
	assert.Zero(t, res.VO2Max)
}

func TestResult_Summary(t *testing.T) {
	res := &Result{Windows: []WindowResult{
		{Valid: true, VO2: 40},
		{Valid: false, Reason: ReasonO2TooLow},
		{Valid: true, VO2: 50},
		{Valid: true, VO2: 60},
	}}

	s := res.Summary()
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 50, s.Mean, 1e-9)
	assert.InDelta(t, 50, s.Median, 1e-9)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, 3, res.ValidWindows())
	assert.InDelta(t, 0.25, res.InvalidWindowRate(), 1e-9)

	assert.Equal(t, Summary{}, (&Result{}).Summary())
}
