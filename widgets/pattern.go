package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-metronome/metronome"
	"go-metronome/theme"
)

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render("■")
}

// RenderPattern draws one cell per slot, eight per line. playhead is the
// sounding slot, or -1 when stopped.
func RenderPattern(th *theme.Theme, p metronome.Pattern, playhead int) string {
	accent := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	on := lipgloss.NewStyle().Foreground(th.Normal())
	off := lipgloss.NewStyle().Foreground(th.Muted())
	head := lipgloss.NewStyle().Foreground(th.Success())

	var lines []string
	for start := 0; start < len(p); start += 8 {
		end := start + 8
		if end > len(p) {
			end = len(p)
		}

		var cells, marks strings.Builder
		for i := start; i < end; i++ {
			if i > start {
				cells.WriteString(" ")
				marks.WriteString(" ")
			}
			switch {
			case p[i] && i == 0:
				cells.WriteString(accent.Render(string(th.Symbols.SlotAccent)))
			case p[i]:
				cells.WriteString(on.Render(string(th.Symbols.SlotOn)))
			default:
				cells.WriteString(off.Render(string(th.Symbols.SlotOff)))
			}
			if i == playhead {
				marks.WriteString(head.Render(string(th.Symbols.Playhead)))
			} else {
				marks.WriteString(" ")
			}
		}
		lines = append(lines, cells.String(), marks.String())
	}
	return strings.Join(lines, "\n")
}

// RenderSlotNumbers labels the first line of slots 1-8 to match the toggle keys
func RenderSlotNumbers(th *theme.Theme, n int) string {
	if n > 8 {
		n = 8
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i+1)
	}
	return lipgloss.NewStyle().Foreground(th.Muted()).Render(strings.Join(labels, " "))
}

// RenderMeter draws a horizontal bar for a value in [0, max]
func RenderMeter(th *theme.Theme, value, max, width int) string {
	if max <= 0 || width <= 0 {
		return ""
	}
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := value * width / max
	bar := lipgloss.NewStyle().Foreground(th.Normal()).Render(strings.Repeat("█", filled))
	rest := lipgloss.NewStyle().Foreground(th.Muted()).Render(strings.Repeat("░", width-filled))
	return bar + rest
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
