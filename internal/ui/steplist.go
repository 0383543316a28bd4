package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StepFrames defines the animation frames (◐ ◓ ◑ ◒) for use in Bubble
// Tea programs, matching the standalone spinner's look.
var StepFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// StepState is the display state of one step in a StepList.
type StepState int

const (
	StepPending StepState = iota
	StepRunning
	StepDone
	StepFailed
	StepSkipped
)

// StepList is a Bubble Tea model rendering an onboarding plan as a
// vertical list of steps, one line each, with a spinner on the line
// currently running.
type StepList struct {
	spinner spinner.Model
	labels  []string
	states  []StepState
	started []time.Time
	elapsed []time.Duration
}

// NewStepList creates a step list for the given step labels, all
// pending.
func NewStepList(labels []string) StepList {
	sp := spinner.New()
	sp.Spinner = StepFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	return StepList{
		spinner: sp,
		labels:  labels,
		states:  make([]StepState, len(labels)),
		started: make([]time.Time, len(labels)),
		elapsed: make([]time.Duration, len(labels)),
	}
}

// Init returns the initial command for the list (spinner tick).
func (l StepList) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update handles spinner animation messages.
func (l StepList) Update(msg tea.Msg) (StepList, tea.Cmd) {
	if tickMsg, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		l.spinner, cmd = l.spinner.Update(tickMsg)
		return l, cmd
	}
	return l, nil
}

// Start marks step i as running.
func (l *StepList) Start(i int) tea.Cmd {
	l.states[i] = StepRunning
	l.started[i] = time.Now()
	return l.spinner.Tick
}

// Finish marks step i with its terminal state.
func (l *StepList) Finish(i int, state StepState) {
	l.states[i] = state
	if !l.started[i].IsZero() {
		l.elapsed[i] = time.Since(l.started[i])
	}
}

// View renders every step on its own line.
func (l StepList) View() string {
	var b strings.Builder
	for i, label := range l.labels {
		b.WriteString(l.line(i, label))
		b.WriteString("\n")
	}
	return b.String()
}

func (l StepList) line(i int, label string) string {
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	switch l.states[i] {
	case StepRunning:
		return l.spinner.View() + " " + label + "..."
	case StepDone:
		symbol := lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess)
		return symbol + " " + label + " " + timingStyle.Render(FormatDuration(l.elapsed[i]))
	case StepFailed:
		symbol := lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail)
		return symbol + " " + label + " " + timingStyle.Render(FormatDuration(l.elapsed[i]))
	case StepSkipped:
		symbol := lipgloss.NewStyle().Foreground(ColorWarning).Render(SymbolSkipped)
		return symbol + " " + label
	default:
		symbol := lipgloss.NewStyle().Foreground(ColorMuted).Render(SymbolPending)
		return symbol + " " + label
	}
}
