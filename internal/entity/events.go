package entity

// CallEventType labels a session lifecycle notification.
type CallEventType string

const (
	CallEventSessionStarted   CallEventType = "session.started"
	CallEventSessionCompleted CallEventType = "session.completed"
	CallEventSessionAbandoned CallEventType = "session.abandoned"
)

// CallEvent is the envelope for lifecycle notifications. The same shape is
// published to the event stream and posted to the completed-call webhook.
// Results is only populated for terminal events.
type CallEvent struct {
	Event     CallEventType   `json:"event"`
	SessionID string          `json:"session_id"`
	Timestamp string          `json:"timestamp,omitempty"`
	Results   *SessionResults `json:"results,omitempty"`
}
