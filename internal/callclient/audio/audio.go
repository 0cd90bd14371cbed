// Package audio records and plays call audio through ffmpeg. Capture is raw
// s16le PCM read off the ffmpeg stdout pipe; playback pipes the synthesized
// asset into ffplay. The session loop talks to both through the interfaces
// below so tests can substitute scripted devices.
package audio

import "context"

// Recorder opens microphone captures.
type Recorder interface {
	Start(ctx context.Context) (Capture, error)
}

// Capture is one running microphone recording.
type Capture interface {
	// Level returns the average signal level observed since the previous
	// call, normalized to [0,1]. It resets the accumulator, so polling it
	// on a fixed interval yields per-interval levels.
	Level() float64

	// Stop ends the capture and returns everything recorded as a WAV
	// file. A capture that never saw audio returns nil bytes. Stop is
	// idempotent.
	Stop() ([]byte, error)
}

// Player plays one audio asset and blocks until playback finishes.
type Player interface {
	Play(ctx context.Context, data []byte) error
}
