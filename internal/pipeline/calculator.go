package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/vo2lens/internal/message"
	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

// Calculator turns sessions into measurement records using a vo2max.Calculator.
// Analyze can be used on its own; Run drives it from a channel.
type Calculator struct {
	calc   *vo2max.Calculator
	limits message.Limits
	input  <-chan message.Session
	output chan<- SessionResult
	logger *zap.Logger
	now    func() time.Time
}

// NewCalculator creates a new Calculator instance. input and output may be nil
// when the caller only uses Analyze.
func NewCalculator(calc *vo2max.Calculator, limits message.Limits, input <-chan message.Session, output chan<- SessionResult, logger *zap.Logger) *Calculator {
	cfg := calc.Config()
	logger.Info("Calculator initialized",
		zap.Uint64("window_ms", cfg.WindowMs),
		zap.Float64("air_density", cfg.AirDensity),
		zap.Float64("ambient_o2_percent", cfg.AmbientO2Percent),
		zap.Float64("dryness_correction", cfg.DrynessCorrection),
	)
	return &Calculator{
		calc:   calc,
		limits: limits,
		input:  input,
		output: output,
		logger: logger,
		now:    time.Now,
	}
}

// Run starts the calculator's processing loop.
func (c *Calculator) Run(ctx context.Context) error {
	sugar := c.logger.Sugar()
	sugar.Info("Starting calculator loop...")
	defer sugar.Info("Calculator loop stopped.")

	for {
		select {
		case session, ok := <-c.input:
			if !ok {
				sugar.Info("Calculator input channel closed.")
				return nil
			}
			result := c.Analyze(session)

			select {
			case c.output <- result:
				sugar.Debugw("Sent session result", zap.String("session_id", result.SessionID))
			case <-ctx.Done():
				sugar.Warnw("Context cancelled before result could be forwarded",
					zap.String("session_id", result.SessionID))
				return ctx.Err()
			}

		case <-ctx.Done():
			sugar.Info("Context cancelled, stopping calculator.")
			return ctx.Err()
		}
	}
}

// Analyze sanitizes the session's readings and computes its measurement record.
// Call-level failures (no usable readings, bad weight) yield a rejected result
// rather than an error so they can be reported downstream.
func (c *Calculator) Analyze(session message.Session) SessionResult {
	start := c.now()
	readings, stats := message.Sanitize(session.Readings, c.limits)

	result := SessionResult{
		SessionID:           session.SessionID,
		Profile:             session.Profile,
		ExerciseType:        session.ExerciseType,
		WeightKg:            session.WeightKg,
		ReadingsReceived:    len(session.Readings),
		ReadingsImplausible: stats.Implausible,
		ReadingsDuplicate:   stats.Duplicate,
		RecordedAt:          session.RecordedAt,
		ComputedAt:          start,
	}
	defer func() {
		sessionAnalysisDuration.Observe(c.now().Sub(start).Seconds())
		sessionsProcessed.WithLabelValues(string(result.Status)).Inc()
	}()
	readingsDropped.WithLabelValues("implausible").Add(float64(stats.Implausible))
	readingsDropped.WithLabelValues("duplicate").Add(float64(stats.Duplicate))

	if stats.Dropped() > 0 {
		c.logger.Debug("Readings removed during sanitizing",
			zap.String("session_id", session.SessionID),
			zap.Int("implausible", stats.Implausible),
			zap.Int("duplicate", stats.Duplicate),
		)
	}

	res, err := c.calc.Analyze(readings, session.WeightKg)
	if err != nil {
		result.Status = StatusRejected
		result.Error = err.Error()
		level := zap.WarnLevel
		if !errors.Is(err, vo2max.ErrEmptyInput) && !errors.Is(err, vo2max.ErrInvalidWeight) {
			level = zap.ErrorLevel
		}
		c.logger.Log(level, "Session rejected",
			zap.String("session_id", session.SessionID),
			zap.Int("usable_readings", len(readings)),
			zap.Float64("weight_kg", session.WeightKg),
			zap.Error(err),
		)
		return result
	}

	result.Status = StatusOK
	result.VO2Max = res.VO2Max
	result.Windows = len(res.Windows)
	result.ValidWindows = res.ValidWindows()
	result.InvalidWindowRate = res.InvalidWindowRate()
	result.Summary = res.Summary()
	result.DegenerateReadings = res.DegenerateReadings
	result.DiscardedTailMs = res.DiscardedTailMs

	for _, w := range res.Windows {
		if w.Valid {
			windowsReduced.WithLabelValues("valid", "").Inc()
		} else {
			windowsReduced.WithLabelValues("invalid", string(w.Reason)).Inc()
		}
	}
	degenerateReadings.Add(float64(res.DegenerateReadings))

	c.logger.Info("Session analyzed",
		zap.String("session_id", result.SessionID),
		zap.String("profile", result.Profile),
		zap.Float64("vo2max", result.VO2Max),
		zap.Int("windows", result.Windows),
		zap.Int("valid_windows", result.ValidWindows),
		zap.Uint64("discarded_tail_ms", result.DiscardedTailMs),
	)
	return result
}
