package pipeline

import (
	"time"

	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

// ResultStatus tells consumers of a SessionResult whether VO2Max is meaningful.
type ResultStatus string

const (
	StatusOK       ResultStatus = "ok"
	StatusRejected ResultStatus = "rejected"
)

// Alert is one threshold violation found on a result.
type Alert struct {
	Check      string  `json:"check"`
	Comparison string  `json:"comparison"`
	Actual     float64 `json:"actual"`
	Threshold  float64 `json:"threshold"`
}

// SessionResult is the measurement record produced for one session: the
// computed V̇O₂max together with the body mass and exercise tag it belongs to.
type SessionResult struct {
	SessionID    string       `json:"session_id"`
	Profile      string       `json:"profile,omitempty"`
	ExerciseType string       `json:"exercise_type,omitempty"`
	WeightKg     float64      `json:"weight_kg"`
	Status       ResultStatus `json:"status"`
	Error        string       `json:"error,omitempty"`

	VO2Max              float64        `json:"vo2max"`
	Windows             int            `json:"windows"`
	ValidWindows        int            `json:"valid_windows"`
	InvalidWindowRate   float64        `json:"invalid_window_rate"`
	Summary             vo2max.Summary `json:"summary"`
	ReadingsReceived    int            `json:"readings_received"`
	ReadingsImplausible int            `json:"readings_implausible"`
	ReadingsDuplicate   int            `json:"readings_duplicate"`
	DegenerateReadings  int            `json:"degenerate_readings"`
	DiscardedTailMs     uint64         `json:"discarded_tail_ms"`
	Alerts              []Alert        `json:"alerts,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
	ComputedAt time.Time `json:"computed_at"`
}

// DroppedReadingRate is the share of received readings removed before analysis.
func (r *SessionResult) DroppedReadingRate() float64 {
	if r.ReadingsReceived == 0 {
		return 0
	}
	return float64(r.ReadingsImplausible+r.ReadingsDuplicate) / float64(r.ReadingsReceived)
}
