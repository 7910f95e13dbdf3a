// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wizard

import (
	"github.com/charmbracelet/bubbletea"

	"rvolution/internal/hub"
)

// Root TUI model wrapping the setup screen
type model struct {
	width    int
	height   int
	quitting bool

	setupModel SetupModel
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.setupModel, cmd = m.setupModel.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return successStyle.Render("Device setup complete.") + "\n"
	}
	return m.setupModel.View()
}

// StartTUI runs the device setup wizard against the given registry
func StartTUI(registry *hub.Registry) error {
	p := tea.NewProgram(
		model{setupModel: NewSetupModel(registry)},
		tea.WithAltScreen(),
	)

	defer func() {
		if r := recover(); r != nil {
			p.Kill()
		}
	}()

	_, err := p.Run()
	return err
}
