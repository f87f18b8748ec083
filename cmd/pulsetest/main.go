package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go-metronome/config"
	"go-metronome/metronome"
	"go-metronome/output"
	"go-metronome/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts(os.Args[2:])
	case "run":
		err = runPulses(os.Args[2:])
	case "presets":
		err = dumpPresets(os.Args[2:])
	default:
		usage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Metronome test tool")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list      - List all MIDI ports")
	fmt.Println("  run       - Print pulses for a number of cycles (run -h for flags)")
	fmt.Println("  presets   - Dump stored presets and patterns")
}

func listPorts(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	timeout := fs.Duration("timeout", output.DefaultScanTimeout, "give up on the MIDI driver after this long")
	fs.Parse(args)
	defer output.CloseDriver()

	fmt.Printf("(waiting up to %s...)\n", *timeout)
	ports, err := output.ListPorts(*timeout)
	if errors.Is(err, output.ErrScanTimeout) {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("=== MIDI Input Ports ===")
	for i, p := range ports.In {
		fmt.Printf("  %d: %s\n", i, p)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range ports.Out {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

func runPulses(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cycles := fs.Int("cycles", 2, "number of cycles to play")
	tempo := fs.Int("tempo", 120, "beats per minute")
	volume := fs.Int("volume", 50, "pulse intensity 0-100")
	pattern := fs.String("pattern", "xx", "slots as x (on) and . (off); length sets the subdivision")
	mode := fs.String("mode", "slot", "emission mode: slot or burst")
	preset := fs.String("preset", "", "load settings from a stored preset instead")
	audio := fs.Bool("audio", false, "also play clicks on the speaker")
	midiPort := fs.String("midi", "", "also send notes to this MIDI output port")
	fs.Parse(args)

	settings, err := runSettings(*preset, *tempo, *volume, *pattern)
	if err != nil {
		return err
	}
	m, err := metronome.ParseMode(*mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sinks := output.Fanout{output.NewText(os.Stdout)}
	if *audio {
		a := output.NewAudio()
		if err := a.Start(); err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		defer a.Close()
		sinks = append(sinks, a)
	}
	if *midiPort != "" {
		defer output.CloseDriver()
		out, err := output.OpenMIDI(*midiPort, output.MIDIConfig{Channel: 9})
		if err != nil {
			return err
		}
		defer out.Close()
		sinks = append(sinks, out)
	}

	engine, err := metronome.NewWithSettings(sinks, settings, metronome.WithMode(m))
	if err != nil {
		return err
	}
	fmt.Printf("tempo=%d sub=%d sig=%s pattern=%s mode=%s slot=%s\n",
		settings.Tempo, settings.Subdivision, settings.TimeSignature, settings.Pattern, m,
		metronome.SlotInterval(settings.Tempo, settings.Subdivision))

	start := time.Now()
	if err := engine.RunCycles(ctx, int64(*cycles)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// runSettings builds validated settings from flags or a stored preset
func runSettings(preset string, tempo, volume int, pattern string) (metronome.Settings, error) {
	if preset != "" {
		st, closeFn, err := openStore()
		if err != nil {
			return metronome.Settings{}, err
		}
		defer closeFn()
		p, ok := st.Preset(preset)
		if !ok {
			return metronome.Settings{}, fmt.Errorf("preset %q not found", preset)
		}
		return p.Settings, p.Settings.Validate()
	}

	p, err := parsePattern(pattern)
	if err != nil {
		return metronome.Settings{}, err
	}
	s := metronome.DefaultSettings()
	s.Tempo = tempo
	s.Volume = volume
	s.Subdivision = len(p)
	s.Pattern = p
	return s, s.Validate()
}

func parsePattern(s string) (metronome.Pattern, error) {
	p := make(metronome.Pattern, 0, len(s))
	for _, c := range s {
		switch c {
		case 'x', 'X', '1':
			p = append(p, true)
		case '.', '-', '0':
			p = append(p, false)
		default:
			return nil, fmt.Errorf("pattern %q: unexpected %q", s, c)
		}
	}
	return p, nil
}

func dumpPresets(args []string) error {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	fs.Parse(args)

	st, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Println("=== Presets ===")
	for _, name := range st.PresetNames() {
		p, _ := st.Preset(name)
		s := p.Settings
		valid := ""
		if err := s.Validate(); err != nil {
			valid = "  (" + err.Error() + ")"
		}
		fmt.Printf("  %-20s %3d bpm  vol %3d  %-5s %s%s\n",
			name, s.Tempo, s.Volume, s.TimeSignature, s.Pattern, valid)
	}

	fmt.Println("\n=== Patterns ===")
	for _, name := range st.PatternNames() {
		p, _ := st.Pattern(name)
		fmt.Printf("  %-20s %s\n", name, p)
	}
	return nil
}

// openStore opens the presets and patterns the app would use
func openStore() (*store.Store, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}

	backend, closeFn, err := store.OpenBackend(cfg.StorageDriver(), cfg.PresetsLocation(dir))
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(context.Background(), backend)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if err := st.LoadPatterns(cfg.PatternsLocation(dir)); err != nil {
		closeFn()
		return nil, nil, err
	}
	fmt.Fprintf(os.Stderr, "storage: %s %s\n", cfg.StorageDriver(), cfg.PresetsLocation(dir))
	return st, closeFn, nil
}
