package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-metronome/config"
	"go-metronome/debug"
	"go-metronome/metronome"
	"go-metronome/output"
	"go-metronome/store"
	"go-metronome/theme"
	"go-metronome/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if cfg.Debug {
		if err := debug.Enable(dir); err != nil {
			return fmt.Errorf("enable debug log: %w", err)
		}
		defer debug.Disable()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Presets and custom patterns
	backend, closeBackend, err := store.OpenBackend(cfg.StorageDriver(), cfg.PresetsLocation(dir))
	if err != nil {
		return fmt.Errorf("open preset storage: %w", err)
	}
	defer closeBackend()

	st, err := store.Open(ctx, backend)
	if err != nil {
		return err
	}
	patternsPath := cfg.PatternsLocation(dir)
	if err := st.LoadPatterns(patternsPath); err != nil {
		return err
	}

	palette, err := theme.LoadOrDefault(cfg.UI.PalettePath)
	if err != nil {
		debug.Log("main", "palette %s: %v, using default", cfg.UI.PalettePath, err)
	}
	th := theme.New(palette)

	// Sinks: the TUI always listens, hardware outputs are opt-in
	pulses := output.NewChan(64)
	sinks := output.Fanout{pulses}
	if cfg.Debug {
		sinks = append(sinks, output.Log{})
	}

	if cfg.Output.Audio {
		audio := output.NewAudio()
		if err := audio.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "audio disabled: %v\n", err)
		} else {
			defer audio.Close()
			sinks = append(sinks, audio)
		}
	}

	usesMIDI := false
	if port := cfg.Output.MIDI.PortName; port != "" {
		usesMIDI = true
		m, err := output.OpenMIDI(port, midiConfig(cfg.Output.MIDI))
		if err != nil {
			fmt.Fprintf(os.Stderr, "midi disabled: %v\n", err)
		} else {
			defer m.Close()
			sinks = append(sinks, m)
		}
	}

	var pads <-chan int
	if cfg.Output.Launchpad {
		usesMIDI = true
		lp, err := output.OpenLaunchpad()
		if err != nil {
			fmt.Fprintf(os.Stderr, "launchpad disabled: %v\n", err)
		} else {
			defer lp.Close()
			sinks = append(sinks, lp)
			pads = lp.Presses()
		}
	}
	if usesMIDI {
		// Runs after the sinks above are closed
		defer output.CloseDriver()
	}

	engine, err := metronome.NewWithSettings(sinks, cfg.StartSettings(),
		metronome.WithMode(cfg.EmissionMode()),
	)
	if err != nil {
		return err
	}

	m := tui.NewModel(ctx, engine, st, th, pulses.C(), pads)
	m.PatternsPath = patternsPath
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, runErr := p.Run()
	engine.Stop()

	cfg.RememberSettings(engine.Settings())
	if err := cfg.Save(); err != nil {
		debug.Log("main", "save config: %v", err)
	}
	return runErr
}

// midiConfig converts the 1-16 channel of the config file to the wire value
func midiConfig(c config.MIDIOutputConfig) output.MIDIConfig {
	ch := c.Channel
	if ch > 0 {
		ch--
	}
	return output.MIDIConfig{
		Channel:    uint8(ch),
		AccentNote: uint8(c.AccentNote),
		NormalNote: uint8(c.NormalNote),
	}
}
