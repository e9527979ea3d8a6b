// SPDX-License-Identifier: MIT

// Package tui holds the terminal screens: a device picker for capture and a
// monitor for a running session.
package tui

import (
	"fmt"
	"strings"

	"musicpainter/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the capture device and rate chosen in the picker.
type Selection struct {
	DeviceID   int
	Name       string
	SampleRate float64
	Channels   int
}

// captureRates are offered on the configuration screen.
var captureRates = []float64{22050, 44100, 48000, 88200, 96000}

// DeviceListModel lists capture devices and lets the user pick one and a
// sample rate for recording.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
	fetch         func() ([]audio.Device, error)

	// Configuration options
	selectedSampleRate   float64
	availableSampleRates []float64
	sampleRateIndex      int

	chosen *Selection
}

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{inputDevices(devices)}
	}
}

// inputDevices keeps the devices that can capture.
func inputDevices(all []audio.Device) []audio.Device {
	out := make([]audio.Device, 0, len(all))
	for _, d := range all {
		if d.MaxInputChannels > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Update handles input and updates the model
type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Initialize the viewport with the window size
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true

			// If we already have devices, render them now
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			// Just update viewport dimensions
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		// First check for keys that should work everywhere
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		// Then handle screen-specific keys
		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					// Switch to configuration screen
					m.activeScreen = ConfigScreen

					m.availableSampleRates = captureRates
					m.selectedSampleRate = m.devices[m.selectedIndex].DefaultSampleRate

					// Preselect the default rate, 44100 Hz when the device reports another.
					m.sampleRateIndex = 1
					for i, rate := range m.availableSampleRates {
						if rate == m.selectedSampleRate {
							m.sampleRateIndex = i
							break
						}
					}

					// Update viewport to show configuration
					m.viewport.SetContent(m.renderDeviceConfig())
				}
			}
		} else if m.activeScreen == ConfigScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				// Return to list screen
				m.activeScreen = ListScreen
				m.viewport.SetContent(m.renderDevices())

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				d := m.devices[m.selectedIndex]
				m.chosen = &Selection{
					DeviceID:   d.ID,
					Name:       d.Name,
					SampleRate: m.availableSampleRates[m.sampleRateIndex],
					Channels:   min(d.MaxInputChannels, 2),
				}
				return m, tea.Quit

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
					m.selectedSampleRate = m.availableSampleRates[m.sampleRateIndex]
					m.viewport.SetContent(m.renderDeviceConfig())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.sampleRateIndex < len(m.availableSampleRates)-1 {
					m.sampleRateIndex++
					m.selectedSampleRate = m.availableSampleRates[m.sampleRateIndex]
					m.viewport.SetContent(m.renderDeviceConfig())
				}
			}
		}
	}

	// Handle viewport updates
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Capture Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Capture Configuration")
		help = infoStyle.Render("↑/↓: Sample Rate • Enter: Record • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No capture devices found."
	}

	for i, device := range m.devices {
		name := device.Name
		if device.DefaultInput {
			name += " *"
		}
		deviceInfo := fmt.Sprintf("[%d] %s (%s, %s)\n",
			device.ID, name, device.Type(), device.HostAPI)
		deviceInfo += fmt.Sprintf("    Input channels: %d, latency %v - %v\n",
			device.MaxInputChannels, device.LowInputLatency, device.HighInputLatency)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n",
			device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceConfig formats the device configuration screen
func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	sb.WriteString(fmt.Sprintf("Configure Device: %s\n\n", device.Name))
	sb.WriteString("Sample Rate:\n")

	// Display sample rate options
	for i, rate := range m.availableSampleRates {
		line := fmt.Sprintf("  %s %.0f Hz\n",
			func() string {
				if i == m.sampleRateIndex {
					return "▶"
				}
				return " "
			}(),
			rate)

		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}

		sb.WriteString(line)
	}

	sb.WriteString(fmt.Sprintf("\nChannels: %d\n", min(device.MaxInputChannels, 2)))

	return sb.String()
}

// Chosen returns the selection made on the configuration screen.
func (m DeviceListModel) Chosen() (Selection, bool) {
	if m.chosen == nil {
		return Selection{}, false
	}
	return *m.chosen, true
}

// NewDeviceListModel creates a picker over the devices fetch returns.
func NewDeviceListModel(fetch func() ([]audio.Device, error)) DeviceListModel {
	if fetch == nil {
		fetch = audio.GetDevices
	}
	return DeviceListModel{
		selectedIndex: 0,
		activeScreen:  ListScreen,
		fetch:         fetch,
	}
}

// PickInputDevice runs the picker. ok is false when the user quit without
// choosing.
func PickInputDevice() (sel Selection, ok bool, err error) {
	p := tea.NewProgram(
		NewDeviceListModel(audio.GetDevices),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok = final.(DeviceListModel).Chosen()
	return sel, ok, nil
}
