// internal/client/tui/login.go
package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lanchat/pkg/protocol"
)

var (
	loginStyle = lipgloss.NewStyle().
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF87D7")).
			Bold(true).
			MarginBottom(1)
)

var (
	ErrNicknameInUse   = errors.New("Nickname already in use!")
	errInvalidNickname = errors.New("Invalid nickname!")
)

type LoginModel struct {
	nickname textinput.Model
	server   string
	pending  bool
	err      error
	width    int
	height   int
}

func NewLoginModel(server string) LoginModel {
	nickname := textinput.New()
	nickname.Placeholder = "Nickname"
	nickname.CharLimit = 16
	nickname.Focus()

	return LoginModel{
		nickname: nickname,
		server:   server,
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// SetError reports a rejected nickname and lets the user try again.
func (m *LoginModel) SetError(err error) {
	m.err = err
	m.pending = false
	m.nickname.Focus()
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.pending {
				return m, nil
			}
			nick := m.nickname.Value()
			if err := protocol.ValidateNickname(nick); err != nil {
				m.err = errInvalidNickname
				return m, nil
			}
			m.err = nil
			m.pending = true
			return m, func() tea.Msg {
				return LoginSubmitMsg{Nickname: nick}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	var cmd tea.Cmd
	m.nickname, cmd = m.nickname.Update(msg)

	// live validation, cleared while the field is empty
	if _, ok := msg.(tea.KeyMsg); ok {
		switch nick := m.nickname.Value(); {
		case nick == "":
			m.err = nil
		case protocol.ValidateNickname(nick) != nil:
			m.err = errInvalidNickname
		case m.err == errInvalidNickname:
			m.err = nil
		}
	}
	return m, cmd
}

func (m LoginModel) View() string {
	var content string

	content += titleStyle.Render("LAN Chat")
	content += "\n\n"
	if m.server != "" {
		content += "Server: " + m.server + "\n\n"
	}

	content += "Nickname:\n"
	content += m.nickname.View()
	content += "\n\n"
	content += "2-16 letters, digits, '_' or '.' • Enter to join • Esc to quit"

	if m.pending {
		content += "\n" + "Connecting..."
	}
	if m.err != nil {
		content += "\n" + errorStyle.Render(m.err.Error())
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		loginStyle.Render(content),
	)
}

// LoginSubmitMsg carries a syntactically valid nickname to offer the server.
type LoginSubmitMsg struct {
	Nickname string
}
