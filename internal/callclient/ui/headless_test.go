package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/voxline/voiceqa-backend/internal/callclient/session"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

func TestHeadlessOutput(t *testing.T) {
	events := make(chan session.Event, 16)
	events <- session.Event{Kind: session.EventQuestion, Question: "What is your name?", Index: 0, Total: 2}
	events <- session.Event{Kind: session.EventPhase, Phase: session.PhaseRecording}
	events <- session.Event{Kind: session.EventLevel, Level: 0.3}
	events <- session.Event{Kind: session.EventTranscript, Text: "John Smith", Confidence: 0.93}
	events <- session.Event{Kind: session.EventNotice, Text: "Moving on to the next question."}
	events <- session.Event{Kind: session.EventEnded, Status: entity.SessionStatusCompleted, Answered: 2, Total: 2}
	close(events)

	var buf bytes.Buffer
	Headless(&buf, events)

	out := buf.String()
	for _, want := range []string{
		"[1/2] What is your name?",
		"listening...",
		"answer: John Smith (confidence 93%)",
		"Moving on to the next question.",
		"call completed: 2 of 2 questions answered",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0.3") {
		t.Error("level samples should not be printed")
	}
}

func TestHeadlessAbandonedWithError(t *testing.T) {
	events := make(chan session.Event, 2)
	events <- session.Event{
		Kind:   session.EventEnded,
		Status: entity.SessionStatusAbandoned,
		Err:    errors.New("microphone busy"),
	}
	close(events)

	var buf bytes.Buffer
	Headless(&buf, events)

	if !strings.Contains(buf.String(), "call abandoned: microphone busy") {
		t.Errorf("output = %q", buf.String())
	}
}
