package output

import (
	"errors"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// DefaultScanTimeout bounds a port scan; CoreMIDI can hang indefinitely
const DefaultScanTimeout = 3 * time.Second

// ErrScanTimeout is returned when the MIDI driver does not answer in time
var ErrScanTimeout = errors.New("midi port scan timed out")

// Ports lists the MIDI port names seen by the driver
type Ports struct {
	In  []string
	Out []string
}

// ListPorts scans the MIDI driver, giving up after timeout
func ListPorts(timeout time.Duration) (Ports, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	ch := make(chan Ports, 1)
	go func() {
		var ports Ports
		for _, p := range gomidi.GetInPorts() {
			ports.In = append(ports.In, p.String())
		}
		for _, p := range gomidi.GetOutPorts() {
			ports.Out = append(ports.Out, p.String())
		}
		ch <- ports
	}()

	select {
	case ports := <-ch:
		return ports, nil
	case <-time.After(timeout):
		return Ports{}, ErrScanTimeout
	}
}

// CloseDriver releases the MIDI driver; call once on exit
func CloseDriver() {
	gomidi.CloseDriver()
}
