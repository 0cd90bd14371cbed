package audio

import "time"

// SilenceTracker watches per-interval signal levels and reports when the
// caller has stayed below the threshold for one continuous window. Any
// above-threshold sample starts the window over.
type SilenceTracker struct {
	threshold float64
	window    time.Duration
	below     time.Duration
}

func NewSilenceTracker(threshold float64, window time.Duration) *SilenceTracker {
	return &SilenceTracker{
		threshold: threshold,
		window:    window,
	}
}

// Observe records one level sample covering elapsed time. It returns true
// once the accumulated quiet time reaches the window.
func (t *SilenceTracker) Observe(level float64, elapsed time.Duration) bool {
	if level >= t.threshold {
		t.below = 0
		return false
	}
	t.below += elapsed
	return t.below >= t.window
}

// Speaking reports whether the level counts as speech.
func (t *SilenceTracker) Speaking(level float64) bool {
	return level >= t.threshold
}

func (t *SilenceTracker) Reset() {
	t.below = 0
}
