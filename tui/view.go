package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-metronome/metronome"
	"go-metronome/widgets"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.Engine.Settings()
	playing := m.Engine.Playing()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())

	playState := "STOP"
	if playing {
		playState = "PLAY"
	}

	header := headerStyle.Render(fmt.Sprintf("go-metronome  %s  %3dbpm  %s  %s",
		playState, s.Tempo, s.TimeSignature, m.Engine.Mode()))

	playhead := -1
	if playing {
		playhead = m.playhead
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("  ")
	out.WriteString(m.renderFlash(playing))
	out.WriteString("\n\n")

	out.WriteString(fgStyle.Render(fmt.Sprintf("volume %3d ", s.Volume)))
	out.WriteString(widgets.RenderMeter(m.Theme, s.Volume, metronome.MaxVolume, 20))
	out.WriteString("\n")
	out.WriteString(fgStyle.Render(fmt.Sprintf("subdivision %d", s.Subdivision)))
	out.WriteString("\n\n")

	out.WriteString(widgets.RenderSlotNumbers(m.Theme, len(s.Pattern)))
	out.WriteString("\n")
	out.WriteString(widgets.RenderPattern(m.Theme, s.Pattern, playhead))
	out.WriteString("\n\n")
	out.WriteString(m.renderLegend())
	out.WriteString("\n\n")

	out.WriteString(m.browser.view(m))
	out.WriteString("\n\n")

	out.WriteString(dimStyle.Render("p:play  +/-:tempo  [/]:fine  v/V:volume  </>:subdiv  1-9:slot  t:sig  c:pattern  m:save pattern  x:del pattern  q:quit"))

	if m.status != "" {
		style := lipgloss.NewStyle().Foreground(m.Theme.Success())
		if m.isErr {
			style = lipgloss.NewStyle().Foreground(m.Theme.Warning())
		}
		out.WriteString("\n")
		out.WriteString(style.Render(m.status))
	}

	return out.String()
}

// renderFlash shows the color of the last pulse while playing
func (m Model) renderFlash(playing bool) string {
	if !playing || m.last.Kind == metronome.KindSilent {
		return widgets.RenderPad(metronome.ColorSilent)
	}
	return widgets.RenderPad(m.last.Color)
}

// renderLegend explains the pulse colors sent to LED sinks
func (m Model) renderLegend() string {
	return strings.Join([]string{
		widgets.RenderLegendItem(metronome.ColorAccent, "accent", "slot 1, double length"),
		widgets.RenderLegendItem(metronome.ColorNormal, "normal", "other active slots"),
		widgets.RenderLegendItem(metronome.ColorSilent, "silent", "inactive slot"),
	}, "\n")
}
