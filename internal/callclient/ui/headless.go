package ui

import (
	"fmt"
	"io"

	"github.com/voxline/voiceqa-backend/internal/callclient/session"
)

// Headless prints the call as plain lines and returns once the session's
// event channel closes. Level samples are skipped; everything else maps to
// one line.
func Headless(out io.Writer, events <-chan session.Event) {
	for ev := range events {
		switch ev.Kind {
		case session.EventQuestion:
			fmt.Fprintf(out, "[%d/%d] %s\n", ev.Index+1, ev.Total, ev.Question)

		case session.EventPhase:
			if ev.Phase == session.PhaseRecording {
				fmt.Fprintln(out, "  listening...")
			}

		case session.EventTranscript:
			fmt.Fprintf(out, "  answer: %s (confidence %.0f%%)\n", ev.Text, ev.Confidence*100)

		case session.EventFallback, session.EventNotice:
			fmt.Fprintf(out, "  %s\n", ev.Text)

		case session.EventEnded:
			if ev.Err != nil {
				fmt.Fprintf(out, "call %s: %v\n", ev.Status, ev.Err)
			} else {
				fmt.Fprintf(out, "call %s: %d of %d questions answered\n", ev.Status, ev.Answered, ev.Total)
			}
		}
	}
}
