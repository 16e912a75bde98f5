package message

import (
	"math"
	"sort"

	"github.com/sanspareilsmyn/vo2lens/internal/vo2max"
)

// Limits bound the raw values accepted from a recording.
type Limits struct {
	MinVenturiArea float64 // exclusive, m²
	MaxVenturiArea float64 // inclusive, m²
	MaxAbsPressure float64 // exclusive, Pa
}

// DefaultLimits matches the range of the reference venturi hardware.
func DefaultLimits() Limits {
	return Limits{
		MinVenturiArea: 0.0001,
		MaxVenturiArea: 0.001,
		MaxAbsPressure: 1000,
	}
}

// Plausible reports whether a payload is physically sane enough to hand to the calculator.
func (l Limits) Plausible(p ReadingPayload) bool {
	for _, v := range []float64{p.VenturiAreaRegular, p.VenturiAreaConstricted, p.O2, p.DifferentialPressure} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if p.O2 < 0 || p.O2 > 100 {
		return false
	}
	if !l.areaInRange(p.VenturiAreaRegular) || !l.areaInRange(p.VenturiAreaConstricted) {
		return false
	}
	return math.Abs(p.DifferentialPressure) < l.MaxAbsPressure
}

func (l Limits) areaInRange(a float64) bool {
	return a > l.MinVenturiArea && a <= l.MaxVenturiArea
}

// SanitizeStats counts what Sanitize removed.
type SanitizeStats struct {
	Implausible int
	Duplicate   int
}

// Dropped is the total number of removed payloads.
func (s SanitizeStats) Dropped() int {
	return s.Implausible + s.Duplicate
}

// Sanitize filters implausible payloads and returns the remaining readings in
// timestamp order. When several payloads share a timestamp the first one received wins.
func Sanitize(payloads []ReadingPayload, limits Limits) ([]vo2max.Reading, SanitizeStats) {
	var stats SanitizeStats

	kept := make([]ReadingPayload, 0, len(payloads))
	for _, p := range payloads {
		if !limits.Plausible(p) {
			stats.Implausible++
			continue
		}
		kept = append(kept, p)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].TimeStamp < kept[j].TimeStamp
	})

	readings := make([]vo2max.Reading, 0, len(kept))
	for i, p := range kept {
		if i > 0 && p.TimeStamp == kept[i-1].TimeStamp {
			stats.Duplicate++
			continue
		}
		readings = append(readings, p.ToReading())
	}
	return readings, stats
}
