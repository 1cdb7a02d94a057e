package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javanstorm/cloudmanager/internal/session"
)

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

const (
	ColorPrimary Color = "99"  // Purple - titles
	ColorMuted   Color = "241" // Gray - secondary text
	ColorError   Color = "196" // Bright red
	ColorOK      Color = "2"   // Green
	ColorBusy    Color = "3"   // Yellow
	ColorSpinner Color = "205" // Pink
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	OKStyle = lipgloss.NewStyle().
		Foreground(ColorOK)

	BusyStyle = lipgloss.NewStyle().
			Foreground(ColorBusy)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)
)

// StatusStyle picks the style used to render a VM status.
func StatusStyle(s session.VMStatus) lipgloss.Style {
	switch s {
	case session.VMRunning:
		return OKStyle
	case session.VMCreatingDisk, session.VMBooting:
		return BusyStyle
	case session.VMError:
		return ErrorStyle
	default:
		return MutedStyle
	}
}
