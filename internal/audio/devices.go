// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"musicpainter/internal/config"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, swapped out by tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns every device PortAudio reports, indexed by position.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	defIn, _ := paLibDefaultInputDeviceFunc()
	defOut, _ := paLibDefaultOutputDeviceFunc()

	devices := make([]Device, len(infos))
	for i, info := range infos {
		d := Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowInputLatency:   info.DefaultLowInputLatency,
			HighInputLatency:  info.DefaultHighInputLatency,
			LowOutputLatency:  info.DefaultLowOutputLatency,
			HighOutputLatency: info.DefaultHighOutputLatency,
			DefaultInput:      defIn != nil && info.Name == defIn.Name,
			DefaultOutput:     defOut != nil && info.Name == defOut.Name,
		}
		if info.HostApi != nil {
			d.HostAPI = info.HostApi.Name
		}
		devices[i] = d
	}
	return devices, nil
}

// InputDeviceInfo retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
// Returns an error if the device ID is invalid or the device has no inputs.
func InputDeviceInfo(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		return paLibDefaultInputDeviceFunc()
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// OutputDeviceInfo is the playback counterpart of InputDeviceInfo.
func OutputDeviceInfo(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		return paLibDefaultOutputDeviceFunc()
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support output", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// ListDevices writes information about all available audio devices to w.
// For each device, it shows:
// - Device ID and name
// - Device type (Input/Output/Input+Output)
// - Channel count
// - Default sample rate
// - Latency ranges
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, d := range devices {
		marker := ""
		if d.DefaultInput || d.DefaultOutput {
			marker = " *"
		}
		fmt.Fprintf(w, "[%d] %s (%s)%s\n", d.ID, d.Name, d.Type(), marker)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowInputLatency.Seconds()*1000,
			d.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all available PortAudio devices, never a nil slice on
// success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
