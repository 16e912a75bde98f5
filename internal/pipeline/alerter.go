package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/vo2lens/internal/config"
)

// Alerter receives session results and checks them against configured thresholds.
// Checked results are forwarded to output when it is not nil.
type Alerter struct {
	thresholds config.AlertConfig
	input      <-chan SessionResult
	output     chan<- SessionResult
	logger     *zap.Logger
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(thresholds config.AlertConfig, input <-chan SessionResult, output chan<- SessionResult, logger *zap.Logger) *Alerter {
	logger.Debug("Alerter initialized",
		zap.Bool("vo2max_min", thresholds.VO2MaxMin != nil),
		zap.Bool("vo2max_max", thresholds.VO2MaxMax != nil),
		zap.Bool("invalid_window_rate", thresholds.InvalidWindowRate != nil),
		zap.Bool("dropped_reading_rate", thresholds.DroppedReadingRate != nil),
		zap.Bool("forwarding", output != nil),
	)
	return &Alerter{
		thresholds: thresholds,
		input:      input,
		output:     output,
		logger:     logger,
	}
}

// Run starts the alerter's processing loop.
func (a *Alerter) Run(ctx context.Context) error {
	sugar := a.logger.Sugar()
	sugar.Info("Starting alerter loop...")
	defer sugar.Info("Alerter loop stopped.")

	for {
		select {
		case result, ok := <-a.input:
			if !ok {
				sugar.Info("Alerter input channel closed.")
				return nil
			}
			a.Evaluate(&result)
			if a.output == nil {
				continue
			}

			select {
			case a.output <- result:
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping alerter.")
			return ctx.Err()
		}
	}
}

// Evaluate checks a result against the thresholds, records violations on it and
// updates the per-profile gauge. Rejected results are only logged.
func (a *Alerter) Evaluate(result *SessionResult) {
	sugar := a.logger.Sugar()
	if result.Status != StatusOK {
		sugar.Warnw("Session produced no measurement",
			zap.String("session_id", result.SessionID),
			zap.String("error", result.Error),
		)
		return
	}

	if result.VO2Max > 0 {
		lastVO2Max.WithLabelValues(profileLabel(result.Profile)).Set(result.VO2Max)
	}

	t := a.thresholds
	a.checkBelow(result, "vo2max", result.VO2Max, t.VO2MaxMin)
	a.checkAbove(result, "vo2max", result.VO2Max, t.VO2MaxMax)
	a.checkAbove(result, "invalid_window_rate", result.InvalidWindowRate, t.InvalidWindowRate)
	a.checkAbove(result, "dropped_reading_rate", result.DroppedReadingRate(), t.DroppedReadingRate)

	fields := []interface{}{
		zap.String("session_id", result.SessionID),
		zap.Float64("vo2max", result.VO2Max),
		zap.Int("valid_windows", result.ValidWindows),
		zap.Float64("invalid_window_rate", result.InvalidWindowRate),
	}
	if result.Summary.Count > 0 {
		fields = append(fields,
			zap.Float64("window_mean", result.Summary.Mean),
			zap.Float64("window_stddev", result.Summary.StdDev),
		)
	}
	if len(result.Alerts) > 0 {
		fields = append(fields, zap.Int("alerts", len(result.Alerts)))
	}
	sugar.Infow("Session result checked", fields...)
}

func (a *Alerter) checkBelow(result *SessionResult, check string, actual float64, threshold *float64) {
	if threshold == nil || actual >= *threshold {
		return
	}
	a.record(result, Alert{Check: check, Comparison: "<", Actual: actual, Threshold: *threshold})
}

func (a *Alerter) checkAbove(result *SessionResult, check string, actual float64, threshold *float64) {
	if threshold == nil || actual <= *threshold {
		return
	}
	a.record(result, Alert{Check: check, Comparison: ">", Actual: actual, Threshold: *threshold})
}

func (a *Alerter) record(result *SessionResult, alert Alert) {
	a.logger.Warn("Threshold violation",
		zap.String("session_id", result.SessionID),
		zap.String("check", alert.Check),
		zap.String("comparison", alert.Comparison),
		zap.Float64("actual", alert.Actual),
		zap.Float64("threshold", alert.Threshold),
	)
	thresholdViolations.WithLabelValues(alert.Check, alert.Comparison).Inc()
	result.Alerts = append(result.Alerts, alert)
}

func profileLabel(profile string) string {
	if profile == "" {
		return "unknown"
	}
	return profile
}
