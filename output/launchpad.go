package output

import (
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-metronome/debug"
	"go-metronome/metronome"
)

// Launchpad lights one pad per pattern slot on a Novation Launchpad X.
// Slots run left to right from the top row, eight per row, so the full
// MaxSubdivision fits in the top four rows.
type Launchpad struct {
	send     func(msg gomidi.Message) error
	stopFunc func()

	mu     sync.Mutex
	lit    int // slot currently lit, -1 for none
	sends  uint64
	closed bool

	pads chan int
}

// OpenLaunchpad finds the Launchpad ports, switches the device into
// programmer mode and starts listening for pad presses
func OpenLaunchpad() (*Launchpad, error) {
	in, out, err := findLaunchpad()
	if err != nil {
		return nil, err
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	lp := NewLaunchpad(send)

	// Programmer mode: F0 00 20 29 02 0C 00 7F F7
	lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))
	// Max brightness: F0 00 20 29 02 0C 08 <brightness> F7
	lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))

	if in != nil {
		stop, err := gomidi.ListenTo(in, lp.handleMessage)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}

	debug.Log("launchpad", "opened %s", out.String())
	return lp, nil
}

// NewLaunchpad wraps an already opened send function
func NewLaunchpad(send func(msg gomidi.Message) error) *Launchpad {
	return &Launchpad{
		send: send,
		lit:  -1,
		pads: make(chan int, 32),
	}
}

// Presses delivers the slot index of every pressed slot pad
func (lp *Launchpad) Presses() <-chan int {
	return lp.pads
}

func (lp *Launchpad) handleMessage(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity uint8
	if !msg.GetNoteOn(&channel, &note, &velocity) || velocity == 0 {
		return
	}
	slot := noteToSlot(note)
	if slot < 0 {
		return
	}
	select {
	case lp.pads <- slot:
	default:
	}
}

// Emit moves the light to the pulse's slot. Silent slots go dark.
func (lp *Launchpad) Emit(p metronome.Pulse) {
	if p.Slot < 0 || p.Slot >= metronome.MaxSubdivision {
		return
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.closed {
		return
	}

	if lp.lit >= 0 && lp.lit != p.Slot {
		lp.send(gomidi.NoteOn(0, slotToNote(lp.lit), 0))
		lp.sends++
	}
	lp.send(gomidi.NoteOn(0, slotToNote(p.Slot), mapRGBToLaunchpad(p.Color)))
	lp.sends++
	lp.lit = p.Slot

	debug.LogEvery(100, "launchpad", "led sends=%d", lp.sends)
}

// Close darkens every slot pad and stops listening
func (lp *Launchpad) Close() error {
	lp.mu.Lock()
	if lp.closed {
		lp.mu.Unlock()
		return nil
	}
	lp.closed = true
	for slot := 0; slot < metronome.MaxSubdivision; slot++ {
		lp.send(gomidi.NoteOn(0, slotToNote(slot), 0))
	}
	lp.lit = -1
	lp.mu.Unlock()

	if lp.stopFunc != nil {
		lp.stopFunc()
	}
	close(lp.pads)
	return nil
}

func findLaunchpad() (drivers.In, drivers.Out, error) {
	var in drivers.In
	var out drivers.Out
	for _, p := range gomidi.GetInPorts() {
		if isLaunchpad(p.String()) {
			in = p
			break
		}
	}
	for _, p := range gomidi.GetOutPorts() {
		if isLaunchpad(p.String()) {
			out = p
			break
		}
	}
	if out == nil {
		return nil, nil, fmt.Errorf("launchpad not found")
	}
	return in, out, nil
}

func isLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

// Launchpad X programmer mode: row 0 (bottom) = notes 11-18, row 7 = 81-88

func rowColToNote(row, col int) uint8 {
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return -1, -1
	}
	return row, col
}

func slotToNote(slot int) uint8 {
	return rowColToNote(7-slot/8, slot%8)
}

func noteToSlot(note uint8) int {
	row, col := noteToRowCol(note)
	if row < 0 {
		return -1
	}
	slot := (7-row)*8 + col
	if slot >= metronome.MaxSubdivision {
		return -1
	}
	return slot
}

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// Format: {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},         // off
		{5, 255, 0, 0},       // red
		{7, 180, 60, 60},     // dim red
		{9, 255, 100, 0},     // orange
		{13, 255, 200, 0},    // yellow
		{21, 0, 255, 0},      // green
		{37, 0, 200, 200},    // cyan
		{45, 0, 100, 255},    // blue
		{49, 150, 0, 200},    // purple
		{53, 255, 80, 180},   // pink
		{119, 255, 255, 255}, // white
	}

	bestMatch := uint8(0)
	bestDist := 1 << 30

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}
	return bestMatch
}
