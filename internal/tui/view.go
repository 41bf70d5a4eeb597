package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorText    = lipgloss.Color("#F9FAFB")
	colorDim     = lipgloss.Color("#9CA3AF")
	colorMuted   = lipgloss.Color("#6B7280")
	colorError   = lipgloss.Color("#EF4444")
	colorBorder  = lipgloss.Color("#374151")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	infoBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2).
			MarginTop(1)
)

// View renders the transport bar and source info.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" reclip preview ") + "\n")

	if m.Err != nil {
		b.WriteString("\n" + errorStyle.Render("  ✗ playback failed") + "\n")
		b.WriteString(infoBoxStyle.Render(m.Err.Error()) + "\n")
		b.WriteString(helpStyle.Render("  [Q] Quit") + "\n")
		return b.String()
	}

	total := m.Info.DurationMillis()
	var frac float64
	if total > 0 {
		frac = float64(m.Position) / float64(total)
	}
	if frac > 1 {
		frac = 1
	}

	state := "⏸ paused"
	if m.Playing {
		state = "▶ playing"
	}

	b.WriteString("\n  " + m.Bar.ViewAs(frac) + "\n")
	b.WriteString("  " + valueStyle.Render(formatMillis(m.Position)) +
		dimStyle.Render(" / "+formatMillis(total)) +
		"   " + dimStyle.Render(state) + "\n")

	var info string
	if m.FrameSeq == 0 && m.Poster != nil {
		info = fmt.Sprintf("%dx%d  %.2f fps  poster @ %s",
			m.Info.Width, m.Info.Height, m.Info.FrameRate, formatMillis(m.Poster.PTSMillis))
	} else {
		info = fmt.Sprintf("%dx%d  %.2f fps  frame #%d",
			m.Info.Width, m.Info.Height, m.Info.FrameRate, m.FrameSeq)
	}
	b.WriteString(infoBoxStyle.Render(dimStyle.Render(info)))

	b.WriteString("\n" + dimStyle.Render("  "+m.marksLine()) + "\n")
	b.WriteString(helpStyle.Render(
		"  [Space] Play/Pause  •  [←/→] Step frame  •  [ [ / ] ] Seek ±5s  •  [I/O] Mark in/out  •  [Q] Quit") + "\n")

	return b.String()
}

func (m Model) marksLine() string {
	format := func(mark int64) string {
		if mark == markUnset {
			return "—"
		}
		return formatMillis(mark)
	}
	line := "in " + format(m.MarkIn) + "  out " + format(m.MarkOut)
	if start, end, ok := m.MarkedRange(); ok {
		line += fmt.Sprintf("  (%.3fs selected)", end-start)
	}
	return line
}

func formatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	h := s / 3600
	min := (s % 3600) / 60
	sec := s % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, min, sec, frac)
	}
	return fmt.Sprintf("%d:%02d.%03d", min, sec, frac)
}
