package session

// Phase is the call position in the conversation loop. Transitions happen
// only inside the session's dispatch goroutine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDialing
	PhaseSpeaking
	PhaseRecording
	PhaseSubmitting
	PhaseAdvancing
	PhaseCompleted
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDialing:
		return "dialing"
	case PhaseSpeaking:
		return "speaking"
	case PhaseRecording:
		return "recording"
	case PhaseSubmitting:
		return "submitting"
	case PhaseAdvancing:
		return "advancing"
	case PhaseCompleted:
		return "completed"
	case PhaseAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the call is over.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseAbandoned
}
