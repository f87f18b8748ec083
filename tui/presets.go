package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"go-metronome/store"
	"go-metronome/widgets"
)

// InputMode for text input
type InputMode int

const (
	InputNone InputMode = iota
	inputPresetName
	inputPatternName
)

const maxNameLen = 32

// presetBrowser is the preset list with its text entry and delete
// confirmation modes
type presetBrowser struct {
	store *store.Store

	names []string
	idx   int

	inputMode   InputMode
	inputBuffer string

	confirmMode   bool
	confirmMsg    string
	confirmAction func(m *Model) tea.Cmd
}

func newPresetBrowser(st *store.Store) *presetBrowser {
	b := &presetBrowser{store: st}
	b.refresh()
	return b
}

// refresh reloads the name list and clamps the selection
func (b *presetBrowser) refresh() {
	b.names = b.store.PresetNames()
	if b.idx >= len(b.names) {
		b.idx = max(0, len(b.names)-1)
	}
}

func (b *presetBrowser) capturing() bool {
	return b.inputMode != InputNone || b.confirmMode
}

func (b *presetBrowser) selected() (string, bool) {
	if len(b.names) == 0 {
		return "", false
	}
	return b.names[b.idx], true
}

func (b *presetBrowser) move(delta int) {
	if len(b.names) == 0 {
		return
	}
	b.idx = clamp(b.idx+delta, 0, len(b.names)-1)
}

func (b *presetBrowser) selectName(name string) {
	b.refresh()
	for i, n := range b.names {
		if n == name {
			b.idx = i
			return
		}
	}
}

func (b *presetBrowser) startInput(mode InputMode) {
	b.inputMode = mode
	b.inputBuffer = ""
}

func (b *presetBrowser) confirmDelete(m *Model) {
	name, ok := b.selected()
	if !ok {
		return
	}
	b.confirmMode = true
	b.confirmMsg = fmt.Sprintf("Delete preset %q?", name)
	b.confirmAction = func(m *Model) tea.Cmd {
		m.Store.RemovePreset(name)
		b.refresh()
		m.setStatus("deleted " + name)
		return m.savePresets()
	}
}

// confirmDeletePattern asks before removing the custom pattern currently
// playing
func (b *presetBrowser) confirmDeletePattern(m *Model) {
	name, ok := m.currentPatternName()
	if !ok {
		m.setStatus("current pattern is not a saved pattern")
		return
	}
	b.confirmMode = true
	b.confirmMsg = fmt.Sprintf("Delete pattern %q?", name)
	b.confirmAction = func(m *Model) tea.Cmd {
		m.Store.RemovePattern(name)
		m.setStatus("deleted pattern " + name)
		return m.savePatterns()
	}
}

func (b *presetBrowser) handleKey(m *Model, key string) tea.Cmd {
	// Confirmation mode
	if b.confirmMode {
		switch key {
		case "y", "Y":
			var cmd tea.Cmd
			if b.confirmAction != nil {
				cmd = b.confirmAction(m)
			}
			b.confirmMode = false
			b.confirmAction = nil
			return cmd
		case "n", "N", "esc", "q":
			b.confirmMode = false
			b.confirmAction = nil
		}
		return nil
	}

	// Input mode
	switch key {
	case "enter":
		return b.commitInput(m)
	case "esc":
		b.inputMode = InputNone
		b.inputBuffer = ""
	case "backspace":
		if len(b.inputBuffer) > 0 {
			b.inputBuffer = b.inputBuffer[:len(b.inputBuffer)-1]
		}
	case "space":
		b.appendInput(" ")
	default:
		b.appendInput(key)
	}
	return nil
}

func (b *presetBrowser) appendInput(key string) {
	// Only accept printable characters
	if len(key) != 1 || key[0] < 32 || key[0] >= 127 {
		return
	}
	if len(b.inputBuffer) < maxNameLen {
		b.inputBuffer += key
	}
}

func (b *presetBrowser) commitInput(m *Model) tea.Cmd {
	name := strings.TrimSpace(b.inputBuffer)
	mode := b.inputMode
	b.inputMode = InputNone
	b.inputBuffer = ""
	if name == "" {
		return nil
	}

	settings := m.Engine.Settings()
	switch mode {
	case inputPresetName:
		m.Store.SavePreset(name, settings)
		b.selectName(name)
		m.setStatus("preset " + name)
		return m.savePresets()
	case inputPatternName:
		m.Store.AddPattern(name, settings.Pattern)
		m.setStatus("pattern " + name + " " + settings.Pattern.String())
		return m.savePatterns()
	}
	return nil
}

func (b *presetBrowser) view(m Model) string {
	var out strings.Builder

	if b.confirmMode {
		out.WriteString("─────────────────────────────────\n")
		out.WriteString(fmt.Sprintf("\n%s\n\n", b.confirmMsg))
		out.WriteString("  [y] Yes    [n] No\n")
		out.WriteString("\n─────────────────────────────────\n")
		return out.String()
	}

	if b.inputMode != InputNone {
		label := "Name this preset"
		if b.inputMode == inputPatternName {
			label = "Name this pattern"
		}
		out.WriteString("─────────────────────────────────\n")
		out.WriteString(fmt.Sprintf("\n%s: %s_\n", label, b.inputBuffer))
		out.WriteString("\n[enter] confirm  [esc] cancel\n")
		out.WriteString("\n─────────────────────────────────\n")
		return out.String()
	}

	out.WriteString("Presets\n")
	out.WriteString("─────────────────────────────────\n")

	// Scroll so the selection stays in a 10 row window
	const maxRows = 10
	start := 0
	if b.idx >= maxRows {
		start = b.idx - maxRows + 1
	}
	end := min(len(b.names), start+maxRows)

	for i := start; i < end; i++ {
		prefix := "  "
		if i == b.idx {
			prefix = string(m.Theme.Symbols.Cursor) + " "
		}
		name := b.names[i]
		detail := ""
		if p, ok := m.Store.Preset(name); ok {
			s := p.Settings
			detail = fmt.Sprintf("%3d bpm %s %s", s.Tempo, s.TimeSignature, s.Pattern)
		}
		if len(name) > 16 {
			name = name[:13] + "..."
		}
		out.WriteString(fmt.Sprintf("%s%-16s %s\n", prefix, name, detail))
	}
	if len(b.names) == 0 {
		out.WriteString("  (no presets yet)\n")
	}

	out.WriteString("\n")
	out.WriteString(widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "j / k", Desc: "navigate list"},
			{Key: "enter", Desc: "load selected"},
			{Key: "n", Desc: "save as preset"},
			{Key: "d", Desc: "delete"},
			{Key: "ctrl+s", Desc: "write presets"},
		}},
	}))
	return out.String()
}
