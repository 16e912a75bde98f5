package message

import (
	"fmt"
	"time"

	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

// ReadingPayload is a reading as recorded by the device firmware. The field
// names are shared by CSV recordings and JSON documents.
type ReadingPayload struct {
	VenturiAreaRegular     float64 `json:"VenturiAreaRegular"`
	VenturiAreaConstricted float64 `json:"VenturiAreaConstricted"`
	O2                     float64 `json:"O2"`
	DifferentialPressure   float64 `json:"DifferentialPressure"`
	TimeStamp              uint64  `json:"TimeStamp"`
}

// ToReading converts the payload into the calculator's reading type.
func (p ReadingPayload) ToReading() vo2max.Reading {
	return vo2max.Reading{
		VenturiAreaWide:      p.VenturiAreaRegular,
		VenturiAreaNarrow:    p.VenturiAreaConstricted,
		O2Percent:            p.O2,
		DifferentialPressure: p.DifferentialPressure,
		TimestampMs:          p.TimeStamp,
	}
}

// FromReading is the inverse of ToReading.
func FromReading(r vo2max.Reading) ReadingPayload {
	return ReadingPayload{
		VenturiAreaRegular:     r.VenturiAreaWide,
		VenturiAreaConstricted: r.VenturiAreaNarrow,
		O2:                     r.O2Percent,
		DifferentialPressure:   r.DifferentialPressure,
		TimeStamp:              r.TimestampMs,
	}
}

// Session is one complete recording submitted for V̇O₂max analysis.
type Session struct {
	SessionID    string           `json:"session_id"`
	Profile      string           `json:"profile,omitempty"`
	WeightKg     float64          `json:"weight_kg"`
	ExerciseType string           `json:"exercise_type,omitempty"`
	RecordedAt   time.Time        `json:"recorded_at"`
	Readings     []ReadingPayload `json:"readings"`
}

// Duration returns the span between the first and last reading.
func (s Session) Duration() time.Duration {
	if len(s.Readings) < 2 {
		return 0
	}
	first, last := s.Readings[0].TimeStamp, s.Readings[len(s.Readings)-1].TimeStamp
	if last < first {
		return 0
	}
	return time.Duration(last-first) * time.Millisecond
}

// String returns a short description for logs.
func (s Session) String() string {
	return fmt.Sprintf("session %s (profile=%q, readings=%d, weight=%.1fkg)",
		s.SessionID, s.Profile, len(s.Readings), s.WeightKg)
}
