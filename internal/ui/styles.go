package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette shared by every styled surface.
var (
	ColorAccent = lipgloss.Color("12")
	ColorPass   = lipgloss.Color("10")
	ColorWarn   = lipgloss.Color("11")
	ColorFail   = lipgloss.Color("9")
	ColorMuted  = lipgloss.Color("8")
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle  = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	idStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

var statusStyles = map[string]lipgloss.Style{
	"open":        lipgloss.NewStyle().Foreground(ColorPass),
	"in_progress": lipgloss.NewStyle().Foreground(ColorAccent),
	"blocked":     lipgloss.NewStyle().Foreground(ColorFail),
	"deferred":    lipgloss.NewStyle().Foreground(ColorMuted),
	"closed":      lipgloss.NewStyle().Foreground(ColorMuted).Strikethrough(true),
	"tombstone":   lipgloss.NewStyle().Foreground(ColorMuted).Faint(true),
	"pinned":      lipgloss.NewStyle().Foreground(ColorWarn).Bold(true),
}

func styled(style lipgloss.Style, s string) string {
	if !ShouldUseColor() {
		return s
	}
	return style.Render(s)
}

// RenderPass styles a success marker.
func RenderPass(s string) string { return styled(passStyle, s) }

// RenderWarn styles a warning marker.
func RenderWarn(s string) string { return styled(warnStyle, s) }

// RenderFail styles a failure marker.
func RenderFail(s string) string { return styled(failStyle, s) }

// RenderMuted styles secondary text.
func RenderMuted(s string) string { return styled(mutedStyle, s) }

// RenderID styles a task id.
func RenderID(s string) string { return styled(idStyle, s) }

// RenderStatus styles a lifecycle status.
func RenderStatus(status string) string {
	if style, ok := statusStyles[status]; ok {
		return styled(style, status)
	}
	return status
}

// RenderPriority renders P0..P4, hot colors for urgent work.
func RenderPriority(priority int) string {
	label := fmt.Sprintf("P%d", priority)
	switch {
	case priority <= 0:
		return styled(failStyle, label)
	case priority == 1:
		return styled(warnStyle, label)
	default:
		return styled(mutedStyle, label)
	}
}

// RenderLabels joins labels with muted styling.
func RenderLabels(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return RenderMuted("[" + strings.Join(labels, ", ") + "]")
}

// HasDarkBackground reports the terminal background, defaulting dark.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}
