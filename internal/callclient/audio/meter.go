package audio

import "math"

// ChunkLevel returns the RMS level of one block of 16-bit samples,
// normalized to [0,1]. An empty block is silent.
func ChunkLevel(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// QualityScore folds the levels sampled while the caller was speaking into a
// rough signal-strength score in [0,1]. A clear voice at normal distance
// averages around 0.25 RMS, which maps to full score.
func QualityScore(speechLevels []float64) float64 {
	if len(speechLevels) == 0 {
		return 0
	}

	var sum float64
	for _, l := range speechLevels {
		sum += l
	}
	avg := sum / float64(len(speechLevels))

	score := avg * 4
	if score > 1 {
		score = 1
	}
	return score
}
