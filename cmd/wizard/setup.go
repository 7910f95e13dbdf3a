package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rvolution/internal/hub"
	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

// Setup screen input fields
type setupField int

const (
	setupFieldFamily setupField = iota
	setupFieldAddress
	setupFieldName
	setupFieldSave
)

// familyChoices maps the on-screen labels to catalog families
var familyChoices = []struct {
	label  string
	family rvolution.Family
}{
	{"Amlogic Player (PlayerOne 8K, Pro 8K, Mini)", rvolution.FamilyAmlogic},
	{"R_volution Player", rvolution.FamilyPlayer},
}

// SetupModel handles the device setup screen
type SetupModel struct {
	// Navigation
	focusedField setupField

	// Family selection
	selectedFamily int

	// Input fields
	address string
	name    string

	// Cursor positions
	addressCursor int
	nameCursor    int

	// Connection state
	connecting      bool
	connectionError string
	savedMessage    string

	registry *hub.Registry
}

// NewSetupModel creates a new setup screen model
func NewSetupModel(registry *hub.Registry) SetupModel {
	return SetupModel{
		focusedField: setupFieldFamily,
		registry:     registry,
	}
}

// Update handles setup screen messages
func (m SetupModel) Update(msg tea.Msg) (SetupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			return m.handleTabNavigation(msg.String() == "shift+tab"), nil

		case "enter":
			if m.focusedField == setupFieldSave {
				return m.handleSave()
			}
			return m.handleTabNavigation(false), nil

		case "up":
			return m.handleUp(), nil

		case "down":
			return m.handleDown(), nil

		case "left":
			return m.handleLeft(), nil

		case "right":
			return m.handleRight(), nil

		case "backspace":
			return m.handleBackspace(), nil

		case "home":
			return m.handleHome(), nil

		case "end":
			return m.handleEnd(), nil

		default:
			return m.handleTextInput(msg.String()), nil
		}
	}

	return m, nil
}

// View renders the setup screen
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("R_volution - Device Setup"))
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Registered devices: %d/%d", m.registry.Count(), hub.MaxDevices)))
	b.WriteString("\n\n")

	// Family Selection
	b.WriteString(subtitleStyle.Render("Device Family:"))
	b.WriteString("\n")
	for i, choice := range familyChoices {
		cursor := "  "
		if i == m.selectedFamily {
			cursor = "> "
		}

		style := lipgloss.NewStyle()
		if m.focusedField == setupFieldFamily && i == m.selectedFamily {
			style = style.Foreground(lipgloss.Color("#FF79C6"))
		}

		b.WriteString(style.Render(cursor + choice.label))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// Address Input
	b.WriteString(subtitleStyle.Render("Address (IP:Port):"))
	b.WriteString("\n")
	addrStyle := inputStyle
	showAddrCursor := m.focusedField == setupFieldAddress
	if showAddrCursor {
		addrStyle = inputFocusedStyle
	}
	b.WriteString(addrStyle.Render(renderTextWithCursor(m.address, m.addressCursor, showAddrCursor)))
	b.WriteString("\n\n")

	// Name Input
	b.WriteString(subtitleStyle.Render("Device Name:"))
	b.WriteString("\n")
	nameStyle := inputStyle
	showNameCursor := m.focusedField == setupFieldName
	if showNameCursor {
		nameStyle = inputFocusedStyle
	}
	b.WriteString(nameStyle.Render(renderTextWithCursor(m.name, m.nameCursor, showNameCursor)))
	b.WriteString("\n\n")

	// Save Button
	saveStyle := buttonStyle
	if m.focusedField == setupFieldSave {
		saveStyle = buttonActiveStyle
	}
	saveText := "Test & Save"
	if m.connecting {
		saveText = "Connecting..."
	}
	b.WriteString(saveStyle.Render(saveText))
	b.WriteString("\n\n")

	if m.connectionError != "" {
		b.WriteString(errorStyle.Render("Error: " + m.connectionError))
		b.WriteString("\n\n")
	}
	if m.savedMessage != "" {
		b.WriteString(successStyle.Render(m.savedMessage))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("↑/↓: Navigate • Tab: Next field • Enter: Action • ←/→: Move cursor • Esc: Quit"))

	return b.String()
}

// handleTabNavigation moves between input fields
func (m SetupModel) handleTabNavigation(reverse bool) SetupModel {
	fields := []setupField{setupFieldFamily, setupFieldAddress, setupFieldName, setupFieldSave}

	currentIndex := -1
	for i, field := range fields {
		if field == m.focusedField {
			currentIndex = i
			break
		}
	}

	if reverse {
		currentIndex--
		if currentIndex < 0 {
			currentIndex = len(fields) - 1
		}
	} else {
		currentIndex++
		if currentIndex >= len(fields) {
			currentIndex = 0
		}
	}

	m.focusedField = fields[currentIndex]
	m.syncCursorPosition()
	return m
}

// handleSave probes the device and registers it on success
func (m SetupModel) handleSave() (SetupModel, tea.Cmd) {
	if m.connecting {
		return m, nil
	}

	if m.address == "" {
		m.connectionError = "Address is required"
		return m, nil
	}
	if m.name == "" {
		m.connectionError = "Device name is required"
		return m, nil
	}

	m.connecting = true
	m.connectionError = ""
	m.savedMessage = ""

	family := familyChoices[m.selectedFamily].family
	client := rvolution.NewClient(m.address, family, 0)

	ctx, cancel := context.WithTimeout(context.Background(), rvolution.DefaultTimeout)
	defer cancel()

	info, err := client.FetchInfo(ctx)
	if err != nil {
		m.connecting = false
		m.connectionError = err.Error()
		return m, nil
	}

	device, err := m.registry.Add(hub.DeviceConfig{
		Name:    m.name,
		Address: m.address,
		Family:  family,
		Enabled: true,
	})
	if err != nil {
		m.connecting = false
		m.connectionError = err.Error()
		return m, nil
	}

	log := logger.New()
	log.Info().
		Str("device_id", device.ID).
		Int("slot", device.Slot).
		Str("model", info.ModelName).
		Str("address", m.address).
		Msg("Device registered")

	m.connecting = false
	m.savedMessage = fmt.Sprintf("Saved %s (%s) in slot %d", device.Name, info.ModelName, device.Slot)

	// Reset inputs for the next device
	m.address = ""
	m.name = ""
	m.addressCursor = 0
	m.nameCursor = 0
	m.focusedField = setupFieldFamily

	return m, nil
}

// handleUp handles up arrow key
func (m SetupModel) handleUp() SetupModel {
	if m.focusedField == setupFieldFamily && m.selectedFamily > 0 {
		m.selectedFamily--
	}
	return m
}

// handleDown handles down arrow key
func (m SetupModel) handleDown() SetupModel {
	if m.focusedField == setupFieldFamily && m.selectedFamily < len(familyChoices)-1 {
		m.selectedFamily++
	}
	return m
}

// handleLeft moves the cursor left in the focused text field
func (m SetupModel) handleLeft() SetupModel {
	switch m.focusedField {
	case setupFieldAddress:
		if m.addressCursor > 0 {
			m.addressCursor--
		}
	case setupFieldName:
		if m.nameCursor > 0 {
			m.nameCursor--
		}
	}
	return m
}

// handleRight moves the cursor right in the focused text field
func (m SetupModel) handleRight() SetupModel {
	switch m.focusedField {
	case setupFieldAddress:
		if m.addressCursor < len(m.address) {
			m.addressCursor++
		}
	case setupFieldName:
		if m.nameCursor < len(m.name) {
			m.nameCursor++
		}
	}
	return m
}

// handleBackspace handles backspace key
func (m SetupModel) handleBackspace() SetupModel {
	switch m.focusedField {
	case setupFieldAddress:
		if m.addressCursor > 0 && len(m.address) > 0 {
			m.address = deleteCharAt(m.address, m.addressCursor-1)
			m.addressCursor--
		}
	case setupFieldName:
		if m.nameCursor > 0 && len(m.name) > 0 {
			m.name = deleteCharAt(m.name, m.nameCursor-1)
			m.nameCursor--
		}
	}
	return m
}

// handleHome moves the cursor to the start of the focused text field
func (m SetupModel) handleHome() SetupModel {
	switch m.focusedField {
	case setupFieldAddress:
		m.addressCursor = 0
	case setupFieldName:
		m.nameCursor = 0
	}
	return m
}

// handleEnd moves the cursor to the end of the focused text field
func (m SetupModel) handleEnd() SetupModel {
	switch m.focusedField {
	case setupFieldAddress:
		m.addressCursor = len(m.address)
	case setupFieldName:
		m.nameCursor = len(m.name)
	}
	return m
}

// handleTextInput inserts printable characters into the focused text field
func (m SetupModel) handleTextInput(input string) SetupModel {
	if len(input) != 1 {
		return m
	}

	switch m.focusedField {
	case setupFieldAddress:
		m.address = insertText(m.address, m.addressCursor, input)
		m.addressCursor++
	case setupFieldName:
		m.name = insertText(m.name, m.nameCursor, input)
		m.nameCursor++
	}
	return m
}

// syncCursorPosition clamps cursors after a focus change
func (m *SetupModel) syncCursorPosition() {
	switch m.focusedField {
	case setupFieldAddress:
		m.addressCursor = len(m.address)
	case setupFieldName:
		m.nameCursor = len(m.name)
	}
}
