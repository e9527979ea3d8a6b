// SPDX-License-Identifier: MIT
package audio

import "time"

// Device describes one host audio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	LowOutputLatency  time.Duration
	HighOutputLatency time.Duration
	DefaultInput      bool
	DefaultOutput     bool
}

// Type returns "Input", "Output" or "Input/Output".
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "None"
	}
}

// GetDevices returns all available audio devices, bracketing the query with
// its own Initialize/Terminate pair.
func GetDevices() ([]Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer Terminate()

	return HostDevices()
}
