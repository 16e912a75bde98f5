package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/vo2lens/internal/config"
)

func TestAlerterEvaluate(t *testing.T) {
	thresholds := config.AlertConfig{
		VO2MaxMin:          floatPtr(20),
		VO2MaxMax:          floatPtr(90),
		InvalidWindowRate:  floatPtr(0.5),
		DroppedReadingRate: floatPtr(0.1),
	}

	tests := []struct {
		name       string
		result     SessionResult
		wantChecks []string
	}{
		{
			name:   "within bounds",
			result: SessionResult{Status: StatusOK, VO2Max: 48, InvalidWindowRate: 0.25, ReadingsReceived: 100, ReadingsImplausible: 2},
		},
		{
			name:       "vo2max too low",
			result:     SessionResult{Status: StatusOK, VO2Max: 12},
			wantChecks: []string{"vo2max"},
		},
		{
			name:       "vo2max too high and too many invalid windows",
			result:     SessionResult{Status: StatusOK, VO2Max: 120, InvalidWindowRate: 0.75},
			wantChecks: []string{"vo2max", "invalid_window_rate"},
		},
		{
			name:       "too many dropped readings",
			result:     SessionResult{Status: StatusOK, VO2Max: 50, ReadingsReceived: 10, ReadingsDuplicate: 2},
			wantChecks: []string{"dropped_reading_rate"},
		},
		{
			name:   "threshold values themselves pass",
			result: SessionResult{Status: StatusOK, VO2Max: 20, InvalidWindowRate: 0.5, ReadingsReceived: 10, ReadingsImplausible: 1},
		},
		{
			name:   "rejected results are not checked",
			result: SessionResult{Status: StatusRejected, Error: "no readings"},
		},
	}

	alerter := NewAlerter(thresholds, nil, nil, zaptest.NewLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.result
			alerter.Evaluate(&result)

			var checks []string
			for _, a := range result.Alerts {
				checks = append(checks, a.Check)
			}
			assert.Equal(t, tt.wantChecks, checks)
		})
	}
}

func TestAlerterEvaluate_RecordsViolation(t *testing.T) {
	alerter := NewAlerter(config.AlertConfig{VO2MaxMin: floatPtr(30)}, nil, nil, zaptest.NewLogger(t))
	before := testutil.ToFloat64(thresholdViolations.WithLabelValues("vo2max", "<"))

	result := SessionResult{SessionID: "s-1", Profile: "rider", Status: StatusOK, VO2Max: 25.5}
	alerter.Evaluate(&result)

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, Alert{Check: "vo2max", Comparison: "<", Actual: 25.5, Threshold: 30}, result.Alerts[0])
	assert.Equal(t, before+1, testutil.ToFloat64(thresholdViolations.WithLabelValues("vo2max", "<")))
	assert.Equal(t, 25.5, testutil.ToFloat64(lastVO2Max.WithLabelValues("rider")))
}

func TestAlerterEvaluate_NoThresholds(t *testing.T) {
	alerter := NewAlerter(config.AlertConfig{}, nil, nil, zaptest.NewLogger(t))

	result := SessionResult{Status: StatusOK, VO2Max: 500, InvalidWindowRate: 1}
	alerter.Evaluate(&result)

	assert.Empty(t, result.Alerts)
	assert.Equal(t, 500.0, testutil.ToFloat64(lastVO2Max.WithLabelValues("unknown")))
}

func TestAlerterRun(t *testing.T) {
	t.Run("forwards checked results", func(t *testing.T) {
		input := make(chan SessionResult, 1)
		output := make(chan SessionResult, 1)
		alerter := NewAlerter(config.AlertConfig{VO2MaxMax: floatPtr(80)}, input, output, zaptest.NewLogger(t))

		input <- SessionResult{SessionID: "s-1", Status: StatusOK, VO2Max: 85}
		close(input)

		require.NoError(t, alerter.Run(context.Background()))
		require.Len(t, output, 1)
		forwarded := <-output
		assert.Equal(t, "s-1", forwarded.SessionID)
		require.Len(t, forwarded.Alerts, 1)
		assert.Equal(t, ">", forwarded.Alerts[0].Comparison)
	})

	t.Run("terminal stage drains input", func(t *testing.T) {
		input := make(chan SessionResult, 2)
		alerter := NewAlerter(config.AlertConfig{}, input, nil, zaptest.NewLogger(t))

		input <- SessionResult{SessionID: "s-1", Status: StatusOK, VO2Max: 40}
		input <- SessionResult{SessionID: "s-2", Status: StatusRejected}
		close(input)

		require.NoError(t, alerter.Run(context.Background()))
		assert.Empty(t, input)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		alerter := NewAlerter(config.AlertConfig{}, make(chan SessionResult), nil, zaptest.NewLogger(t))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, alerter.Run(ctx), context.Canceled)
	})
}

func TestProfileLabel(t *testing.T) {
	assert.Equal(t, "unknown", profileLabel(""))
	assert.Equal(t, "rower", profileLabel("rower"))
}
