package vo2max

import (
	"github.com/montanaflynn/stats"
)

// Summary describes the spread of valid window V̇O₂ values in a recording.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// Summary aggregates the valid windows. A recording without valid windows yields
// the zero Summary.
func (r *Result) Summary() Summary {
	values := make(stats.Float64Data, 0, len(r.Windows))
	for _, w := range r.Windows {
		if w.Valid {
			values = append(values, w.VO2)
		}
	}
	if len(values) == 0 {
		return Summary{}
	}

	s := Summary{Count: len(values)}
	s.Mean, _ = values.Mean()
	s.StdDev, _ = values.StandardDeviation()
	s.Median, _ = values.Median()
	s.P90, _ = values.Percentile(90)
	return s
}
