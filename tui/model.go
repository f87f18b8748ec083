package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"go-metronome/debug"
	"go-metronome/metronome"
	"go-metronome/store"
	"go-metronome/theme"
)

// Step sizes for the tempo and volume keys
const (
	TempoStep     = 5
	TempoFineStep = 1
	VolumeStep    = 5
)

type Model struct {
	Engine *metronome.Engine
	Store  *store.Store
	Theme  *theme.Theme

	// PatternsPath is where the custom pattern library is written; empty
	// keeps patterns in memory only
	PatternsPath string

	pulses <-chan metronome.Pulse
	pads   <-chan int
	ctx    context.Context

	browser  *presetBrowser
	playhead int
	last     metronome.Pulse
	status   string
	isErr    bool
	quitting bool
}

// PulseMsg carries one pulse from the engine's channel sink
type PulseMsg metronome.Pulse

// PadMsg is a slot pad pressed on the grid controller
type PadMsg int

// savedMsg reports the result of a background store write
type savedMsg struct {
	what string
	err  error
}

// NewModel builds the control surface. pulses and pads may be nil.
func NewModel(ctx context.Context, engine *metronome.Engine, st *store.Store, th *theme.Theme, pulses <-chan metronome.Pulse, pads <-chan int) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Engine:   engine,
		Store:    st,
		Theme:    th,
		pulses:   pulses,
		pads:     pads,
		ctx:      ctx,
		browser:  newPresetBrowser(st),
		playhead: -1,
	}
}

func ListenForPulses(pulses <-chan metronome.Pulse) tea.Cmd {
	if pulses == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-pulses
		if !ok {
			return nil
		}
		return PulseMsg(p)
	}
}

func ListenForPads(pads <-chan int) tea.Cmd {
	if pads == nil {
		return nil
	}
	return func() tea.Msg {
		slot, ok := <-pads
		if !ok {
			return nil
		}
		return PadMsg(slot)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForPulses(m.pulses),
		ListenForPads(m.pads),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Text entry and confirmation swallow every key except ctrl+c
		if m.browser.capturing() && msg.String() != "ctrl+c" {
			cmd := m.browser.handleKey(&m, msg.String())
			return m, cmd
		}
		return m.handleKey(msg.String())

	case PulseMsg:
		m.last = metronome.Pulse(msg)
		m.playhead = m.last.Slot
		if !m.Engine.Playing() {
			m.playhead = -1
		}
		return m, ListenForPulses(m.pulses)

	case PadMsg:
		m.report(m.Engine.ToggleSlot(int(msg)))
		return m, ListenForPads(m.pads)

	case savedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("save %s: %w", msg.what, msg.err))
		} else {
			m.setStatus("saved " + msg.what)
		}
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	s := m.Engine.Settings()

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		m.Engine.Stop()
		return m, tea.Quit

	case "p", " ", "space":
		if m.Engine.Playing() {
			m.Engine.Stop()
			m.playhead = -1
			m.setStatus("stopped")
		} else {
			m.Engine.Play()
			m.setStatus("playing")
		}

	case "+", "=":
		m.report(m.Engine.SetTempo(clamp(s.Tempo+TempoStep, metronome.MinTempo, metronome.MaxTempo)))
	case "-", "_":
		m.report(m.Engine.SetTempo(clamp(s.Tempo-TempoStep, metronome.MinTempo, metronome.MaxTempo)))
	case "]":
		m.report(m.Engine.SetTempo(clamp(s.Tempo+TempoFineStep, metronome.MinTempo, metronome.MaxTempo)))
	case "[":
		m.report(m.Engine.SetTempo(clamp(s.Tempo-TempoFineStep, metronome.MinTempo, metronome.MaxTempo)))

	case "V":
		m.report(m.Engine.SetVolume(clamp(s.Volume+VolumeStep, metronome.MinVolume, metronome.MaxVolume)))
	case "v":
		m.report(m.Engine.SetVolume(clamp(s.Volume-VolumeStep, metronome.MinVolume, metronome.MaxVolume)))

	case ">", ".":
		m.report(m.Engine.SetSubdivision(clamp(s.Subdivision+1, 1, metronome.MaxSubdivision)))
	case "<", ",":
		m.report(m.Engine.SetSubdivision(clamp(s.Subdivision-1, 1, metronome.MaxSubdivision)))

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.report(m.Engine.ToggleSlot(int(key[0] - '1')))

	case "t":
		m.report(m.Engine.SetTimeSignature(nextTimeSignature(s.TimeSignature)))

	case "c":
		m.cyclePattern(s)

	case "m":
		m.browser.startInput(inputPatternName)
	case "x":
		m.browser.confirmDeletePattern(&m)
	case "n":
		m.browser.startInput(inputPresetName)

	case "j", "down":
		m.browser.move(1)
	case "k", "up":
		m.browser.move(-1)
	case "enter":
		m.loadSelected()
	case "d":
		m.browser.confirmDelete(&m)

	case "ctrl+s":
		return m, m.savePresets()
	}
	return m, nil
}

// loadSelected recalls the highlighted preset. Stored presets are checked
// here, so a bad entry in the file only fails when it is used.
func (m *Model) loadSelected() {
	name, ok := m.browser.selected()
	if !ok {
		return
	}
	p, ok := m.Store.Preset(name)
	if !ok {
		m.setError(fmt.Errorf("preset %q not found", name))
		m.browser.refresh()
		return
	}
	if err := m.Engine.Apply(p.Settings); err != nil {
		m.setError(fmt.Errorf("preset %q: %w", name, err))
		return
	}
	m.setStatus("loaded " + name)
}

// cyclePattern applies the next custom pattern, resizing the subdivision to
// fit it
func (m *Model) cyclePattern(s metronome.Settings) {
	names := m.Store.PatternNames()
	if len(names) == 0 {
		m.setStatus("no custom patterns")
		return
	}

	next := names[0]
	for i, name := range names {
		p, _ := m.Store.Pattern(name)
		if p.Equal(s.Pattern) && i+1 < len(names) {
			next = names[i+1]
			break
		}
	}

	p, _ := m.Store.Pattern(next)
	s.Subdivision = len(p)
	s.Pattern = p
	if err := m.Engine.Apply(s); err != nil {
		m.setError(fmt.Errorf("pattern %q: %w", next, err))
		return
	}
	m.setStatus("pattern " + next)
}

// currentPatternName finds the saved pattern equal to the live one
func (m Model) currentPatternName() (string, bool) {
	live := m.Engine.Settings().Pattern
	for _, name := range m.Store.PatternNames() {
		if p, _ := m.Store.Pattern(name); p.Equal(live) {
			return name, true
		}
	}
	return "", false
}

func (m Model) savePresets() tea.Cmd {
	st, ctx := m.Store, m.ctx
	return func() tea.Msg {
		return savedMsg{what: "presets", err: st.SavePresets(ctx)}
	}
}

func (m Model) savePatterns() tea.Cmd {
	st, path := m.Store, m.PatternsPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		return savedMsg{what: "patterns", err: st.SavePatterns(path)}
	}
}

func (m *Model) report(err error) {
	if err == nil {
		m.status = ""
		m.isErr = false
		return
	}
	m.setError(err)
}

func (m *Model) setError(err error) {
	debug.Log("tui", "error: %v", err)
	m.status = err.Error()
	m.isErr = true
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.isErr = false
}

// Status returns the status line text and whether it is an error
func (m Model) Status() (string, bool) {
	return m.status, m.isErr
}

func nextTimeSignature(ts metronome.TimeSignature) metronome.TimeSignature {
	for i, sig := range metronome.TimeSignatures {
		if sig == ts {
			return metronome.TimeSignatures[(i+1)%len(metronome.TimeSignatures)]
		}
	}
	return metronome.TimeSignatures[0]
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
