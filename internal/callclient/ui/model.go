// Package ui renders a call session in the terminal. The full-screen model
// consumes the session event stream; Headless is the plain-line alternative
// for scripts and dumb terminals.
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voxline/voiceqa-backend/internal/callclient/session"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

// Call is the one control the UI has over the session.
type Call interface {
	Hangup()
}

// AnswerLine is an accepted answer for display.
type AnswerLine struct {
	Index      int
	Text       string
	Confidence float64
}

type sessionEventMsg struct{ event session.Event }

type sessionClosedMsg struct{}

// Model is the root bubbletea model for a call.
type Model struct {
	call   Call
	events <-chan session.Event

	phase    session.Phase
	index    int
	total    int
	question string
	fallback string
	notice   string
	level    float64

	transcript []AnswerLine

	hangingUp bool
	ended     bool
	status    entity.SessionStatus
	answered  int
	endErr    error

	width  int
	height int
}

// New builds the model around a running session's event stream.
func New(call Call, events <-chan session.Event) Model {
	return Model{
		call:   call,
		events: events,
		phase:  session.PhaseIdle,
	}
}

// Init starts pumping session events into the program.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// waitForEvent blocks on the next session event. The session closes the
// channel after the final event, which quits the program.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{event: ev}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionEventMsg:
		m.apply(msg.event)
		return m, waitForEvent(m.events)

	case sessionClosedMsg:
		m.ended = true
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one session event into the display state.
func (m *Model) apply(ev session.Event) {
	switch ev.Kind {
	case session.EventPhase:
		m.phase = ev.Phase
		m.total = ev.Total
		if ev.Phase == session.PhaseRecording {
			// Stale notices age out once the caller can speak again.
			m.notice = ""
			m.level = 0
		}

	case session.EventQuestion:
		m.question = ev.Question
		m.index = ev.Index
		m.total = ev.Total
		m.fallback = ""

	case session.EventLevel:
		m.level = ev.Level

	case session.EventTranscript:
		m.transcript = append(m.transcript, AnswerLine{
			Index:      ev.Index,
			Text:       ev.Text,
			Confidence: ev.Confidence,
		})

	case session.EventFallback:
		m.fallback = ev.Text

	case session.EventNotice:
		m.notice = ev.Text

	case session.EventEnded:
		m.ended = true
		m.status = ev.Status
		m.answered = ev.Answered
		m.total = ev.Total
		m.endErr = ev.Err
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.ended {
			return m, tea.Quit
		}
		// Ask the session to wind down; quitting happens when its event
		// channel closes, after the analytics flush.
		if !m.hangingUp {
			m.hangingUp = true
			m.call.Hangup()
		}
		return m, nil
	}
	return m, nil
}

// View renders the full call screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderQuestionPanel())
	sections = append(sections, m.renderTranscriptPanel())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	return titleStyle.Render("VOICEQA CALL") + dimStyle.Render(" | automated screening")
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.phase {
	case session.PhaseRecording:
		dot = listeningStyle.Render("● LISTENING")
	case session.PhaseSpeaking:
		dot = speakingStyle.Render("▶ ASKING")
	case session.PhaseSubmitting:
		dot = busyStyle.Render("⟳ SENDING")
	case session.PhaseAdvancing:
		dot = busyStyle.Render("… NEXT")
	case session.PhaseCompleted:
		dot = doneStyle.Render("✓ COMPLETED")
	case session.PhaseAbandoned:
		dot = errorStyle.Render("✗ ENDED")
	default:
		dot = idleStyle.Render("○ DIALING")
	}

	var progress string
	if m.total > 0 && !m.ended {
		progress = dimStyle.Render(fmt.Sprintf("  question %d of %d", m.index+1, m.total))
	}

	var meter string
	if m.phase == session.PhaseRecording {
		meter = "  " + renderLevelMeter(m.level)
	}

	return dot + progress + meter
}

func renderLevelMeter(level float64) string {
	const cells = 10
	scaled := level * 3
	if scaled > 1 {
		scaled = 1
	}
	filled := int(scaled * cells)

	var bar strings.Builder
	for i := 0; i < cells; i++ {
		switch {
		case i >= filled:
			bar.WriteString(levelOffStyle.Render("░"))
		case float64(i)/cells > 0.7:
			bar.WriteString(levelHotStyle.Render("█"))
		default:
			bar.WriteString(levelOnStyle.Render("█"))
		}
	}
	return dimStyle.Render("MIC ") + bar.String()
}

func (m Model) renderQuestionPanel() string {
	var lines []string

	if m.ended {
		lines = append(lines, m.renderSummary())
	} else if m.question == "" {
		lines = append(lines, dimStyle.Render("  Waiting for the first question..."))
	} else {
		for _, l := range wrapText(m.question, max(20, m.width-4)) {
			lines = append(lines, "  "+questionStyle.Render(l))
		}
	}

	if m.fallback != "" {
		lines = append(lines, "  "+noticeStyle.Render(m.fallback))
	}
	if m.notice != "" {
		lines = append(lines, "  "+dimStyle.Render(m.notice))
	}
	if m.hangingUp && !m.ended {
		lines = append(lines, "  "+noticeStyle.Render("Hanging up..."))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m Model) renderSummary() string {
	if m.status == entity.SessionStatusCompleted {
		return "  " + doneStyle.Render(fmt.Sprintf("Call completed: %d of %d questions answered.", m.answered, m.total))
	}
	summary := fmt.Sprintf("Call ended: %d of %d questions answered.", m.answered, m.total)
	if m.endErr != nil {
		summary += " " + m.endErr.Error()
	}
	return "  " + errorStyle.Render(summary)
}

func (m Model) renderTranscriptPanel() string {
	var lines []string
	lines = append(lines, panelTitleStyle.Render(fmt.Sprintf("ANSWERS (%d)", len(m.transcript))))

	if len(m.transcript) == 0 {
		lines = append(lines, dimStyle.Render("  Your accepted answers appear here."))
	} else {
		visible := m.transcriptVisibleLines()
		start := 0
		if len(m.transcript) > visible {
			start = len(m.transcript) - visible
		}
		for _, a := range m.transcript[start:] {
			line := fmt.Sprintf("  %2d. %s", a.Index+1, a.Text)
			conf := confidenceStyle.Render(fmt.Sprintf(" (%.0f%%)", a.Confidence*100))
			lines = append(lines, line+conf)
		}
	}

	return strings.Join(lines, "\n")
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 10
	}
	// header, status, two dividers, question block, footer
	reserved := 10
	if m.height-reserved < 3 {
		return 3
	}
	return m.height - reserved
}

func (m Model) renderFooter() string {
	if m.ended {
		return footerKeyStyle.Render("q") + footerDescStyle.Render(" Close")
	}
	return footerKeyStyle.Render("q") + footerDescStyle.Render(" Hang up")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
