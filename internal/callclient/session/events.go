package session

import "github.com/voxline/voiceqa-backend/internal/entity"

// EventKind tags what a session event carries.
type EventKind int

const (
	// EventPhase reports a phase change. Phase, Index and Total are set.
	EventPhase EventKind = iota

	// EventQuestion announces the question about to be asked. Question,
	// Index and Total are set.
	EventQuestion

	// EventLevel is a live microphone level sample in [0,1]. High
	// frequency; dropped rather than queued when the consumer lags.
	EventLevel

	// EventTranscript carries an accepted answer. Text and Confidence
	// are set.
	EventTranscript

	// EventFallback carries the re-prompt message after a rejection.
	EventFallback

	// EventNotice is a one-line status message worth showing.
	EventNotice

	// EventEnded is the last event of a call. Status, Answered and Err
	// are set; Err is nil unless the call was abandoned with a failure.
	EventEnded
)

// Event is what the session streams to its UI. The channel closes after
// EventEnded.
type Event struct {
	Kind       EventKind
	Phase      Phase
	Index      int
	Total      int
	Question   string
	Text       string
	Confidence float64
	Level      float64
	Status     entity.SessionStatus
	Answered   int
	Err        error
}
