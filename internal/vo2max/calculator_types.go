package vo2max

// WindowResult is the outcome of reducing one completed window.
type WindowResult struct {
	StartMs      uint64        `json:"start_ms"`
	EndMs        uint64        `json:"end_ms"`
	VolumeL      float64       `json:"volume_l"`
	MinuteVolume float64       `json:"minute_volume_l"`
	O2Percent    float64       `json:"o2_percent"`
	VO2          float64       `json:"vo2,omitempty"`
	Valid        bool          `json:"valid"`
	Reason       InvalidReason `json:"reason,omitempty"`
}

// Result is the full outcome of one pass over a recording.
type Result struct {
	VO2Max             float64        `json:"vo2max"`
	Windows            []WindowResult `json:"windows"`
	ReadingCount       int            `json:"reading_count"`
	BreathingReadings  int            `json:"breathing_readings"`
	DegenerateReadings int            `json:"degenerate_readings"`
	DiscardedTailMs    uint64         `json:"discarded_tail_ms"`
}

// ValidWindows returns the number of windows that passed plausibility checks.
func (r *Result) ValidWindows() int {
	n := 0
	for _, w := range r.Windows {
		if w.Valid {
			n++
		}
	}
	return n
}

// InvalidWindowRate is the share of reduced windows that were rejected, or 0
// when no window completed.
func (r *Result) InvalidWindowRate() float64 {
	if len(r.Windows) == 0 {
		return 0
	}
	return float64(len(r.Windows)-r.ValidWindows()) / float64(len(r.Windows))
}

// windowState is the mutable state of a single Analyze call. It is never shared.
type windowState struct {
	windowStartMs     uint64
	lastFlowTsMs      uint64
	accumulatedVolume float64
	maxVO2            float64
}

func newWindowState(startMs uint64) *windowState {
	return &windowState{
		windowStartMs: startMs,
		lastFlowTsMs:  startMs,
	}
}

// elapsedSinceFlow returns the time since the previous reading, 0 when the
// timestamp went backwards.
func (s *windowState) elapsedSinceFlow(ts uint64) uint64 {
	if ts < s.lastFlowTsMs {
		return 0
	}
	return ts - s.lastFlowTsMs
}

func (s *windowState) windowComplete(ts, windowMs uint64) bool {
	return ts > s.windowStartMs && ts-s.windowStartMs > windowMs
}

func (s *windowState) reset(ts uint64) {
	s.accumulatedVolume = 0
	s.windowStartMs = ts
}
