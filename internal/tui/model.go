// Package tui is the interactive preview surface: a seek bar, mark
// in/out capture, and transport keys over a playback session. It never
// decodes anything itself; it polls the session for position and frame
// updates.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"reclip/media"
	"reclip/playback"
	"reclip/probe"
	"reclip/transcode"
)

// coarseSeekMillis is how far the bracket keys scrub per press.
const coarseSeekMillis = 5_000

// markUnset marks an in/out point that has not been captured yet.
const markUnset = int64(-1)

// TickMsg drives the UI poll; each tick reads the session state.
type TickMsg time.Time

// Model is the Bubble Tea model for the preview window.
type Model struct {
	Session *playback.Session
	Info    probe.Info
	Bar     progress.Model

	// Poster is the clip-midpoint frame shown until the session
	// publishes its first decoded frame.
	Poster *media.Picture

	Position int64
	FrameSeq uint64
	Playing  bool
	MarkIn   int64
	MarkOut  int64
	Width    int
	Err      error
}

// NewModel wraps an already-opened playback session. poster may be nil
// when extraction failed; the view then simply waits for the first
// decoded frame.
func NewModel(sess *playback.Session, poster *media.Picture) Model {
	bar := progress.New(
		progress.WithGradient("#7C3AED", "#10B981"),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)
	return Model{
		Session: sess,
		Info:    sess.Info(),
		Bar:     bar,
		Poster:  poster,
		MarkIn:  markUnset,
		MarkOut: markUnset,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.Playing = m.Session.TogglePlayPause()
		case "right", ".":
			m.Session.StepForward()
			m.Playing = false
		case "left", ",":
			m.Session.StepBackward()
			m.Playing = false
		case "]":
			m.Session.Seek(m.Position+coarseSeekMillis, false)
		case "[":
			m.Session.Seek(m.Position-coarseSeekMillis, false)
		case "i":
			m.MarkIn = m.Position
		case "o":
			m.MarkOut = m.Position
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		w := msg.Width - 14
		if w < 10 {
			w = 10
		}
		m.Bar.Width = w

	case TickMsg:
		m.Position = m.Session.Position()
		m.Playing = m.Session.Playing()
		_, m.FrameSeq = m.Session.LatestFrame()
		m.Err = m.Session.Err()
		return m, tickCmd()
	}

	return m, nil
}

// MarkedRange returns the captured in/out pair in seconds. ok is false
// until both points are set and the out point lies after the in point.
func (m Model) MarkedRange() (startSeconds, endSeconds float64, ok bool) {
	if m.MarkIn == markUnset || m.MarkOut == markUnset || m.MarkOut <= m.MarkIn {
		return 0, 0, false
	}
	return float64(m.MarkIn) / 1000, float64(m.MarkOut) / 1000, true
}

// MarkedRequest copies the marked range into req's start and end, so a
// previewed selection can be shrunk with the same settings otherwise.
func (m Model) MarkedRequest(req transcode.Request) (transcode.Request, bool) {
	start, end, ok := m.MarkedRange()
	if !ok {
		return req, false
	}
	req.StartSeconds = start
	req.EndSeconds = end
	return req, true
}
