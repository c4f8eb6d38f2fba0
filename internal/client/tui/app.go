// internal/client/tui/app.go
package tui

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"lanchat/internal/client/models"
)

type Page int

const (
	ChatPage Page = iota
	FilesPage
	UploadPage
)

const sidebarWidth = 28

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	tabStyle = headerStyle.
			Background(lipgloss.Color("#383838"))

	activeTabStyle = headerStyle.
			Background(lipgloss.Color("#874BFD")).
			Underline(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Width(10)

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("#383838")).
			PaddingLeft(1).
			Width(sidebarWidth)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#874BFD"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF87D7")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

var errDisconnected = errors.New("Cannot connect to the server!")

// Callbacks connect the chat view to the network layer. Upload and
// Download return commands that run the transfer off the UI goroutine.
type Callbacks struct {
	Send     func(text string) error
	Upload   func(path string) tea.Cmd
	Download func(file models.SharedFile) tea.Cmd
}

type line struct {
	at   time.Time
	text string
}

type Model struct {
	viewport    viewport.Model
	input       textinput.Model
	picker      filepicker.Model
	progress    progress.Model
	currentPage Page
	lines       []line
	peers       []string
	files       []models.SharedFile
	selected    int
	nickname    string
	callbacks   Callbacks
	transfer    string
	transferred int64
	width       int
	height      int
	err         error
}

func NewModel(nickname string, callbacks Callbacks) Model {
	input := textinput.New()
	input.Placeholder = "Type a message or /help..."
	input.Focus()
	input.CharLimit = 4096

	// get term size
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil {
		width = 80 // Fallback
		height = 24
	}

	picker := filepicker.New()
	if dir, err := os.UserHomeDir(); err == nil {
		picker.CurrentDirectory = dir
	}
	picker.ShowPermissions = false

	m := Model{
		viewport:  viewport.New(width, height),
		input:     input,
		picker:    picker,
		progress:  progress.New(progress.WithDefaultGradient()),
		nickname:  nickname,
		callbacks: callbacks,
		peers:     []string{nickname},
	}
	m.resize(width, height)
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.currentPage {
		case UploadPage:
			return m.updatePicker(msg)
		case FilesPage:
			return m.updateFiles(msg)
		}

		switch msg.String() {
		case "tab":
			m.currentPage = FilesPage
			m.input.Blur()
			return m, nil
		case "ctrl+o":
			return m.openPicker()
		case "enter":
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case models.MessageReceived:
		m.appendLine(msg.Text)

	case models.PeerJoined:
		if !slices.Contains(m.peers, msg.Nickname) {
			m.peers = append(m.peers, msg.Nickname)
			slices.Sort(m.peers)
		}

	case models.PeerLeft:
		m.peers = slices.DeleteFunc(m.peers, func(n string) bool {
			return n == msg.Nickname
		})

	case models.FileShared:
		m.files = append(m.files, msg.File)
		m.appendLine(fmt.Sprintf("---- File #%d: %s (/download %d)", len(m.files), msg.File.Filename, len(m.files)))

	case models.TransferProgress:
		m.transferred = msg.Done
		if msg.Total > 0 {
			cmds = append(cmds, m.progress.SetPercent(float64(msg.Done)/float64(msg.Total)))
		}

	case models.TransferFinished:
		m.transfer = ""
		m.transferred = 0
		if msg.Err != nil {
			m.appendLine("---- Transfer failed: " + msg.Err.Error())
		} else {
			m.appendLine("---- " + msg.Summary)
		}
		cmds = append(cmds, m.progress.SetPercent(0))

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case models.ErrorMsg:
		m.err = fmt.Errorf("%s", msg.Error)
		log.Error().Err(m.err).Msg("error received")

	case models.Disconnected:
		m.err = errDisconnected
		m.input.Blur()
		m.appendLine("---- Disconnected from the server.")
	}

	if m.currentPage == UploadPage {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, tea.Batch(append(cmds, cmd)...)
	}

	// Update viewport
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	// Update input
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.err == errDisconnected {
		return m, nil
	}

	a := parseInput(m.input.Value())
	m.input.Reset()

	switch a.kind {
	case actionNone:
	case actionHelp:
		for _, l := range helpLines {
			m.appendLine(l)
		}
	case actionClear:
		m.lines = nil
		m.updateContent()
	case actionQuit:
		return m, tea.Quit
	case actionWarn:
		m.appendLine(a.text)
	case actionDownload:
		return m.startDownload(a.index - 1)
	case actionSend:
		if m.callbacks.Send == nil {
			break
		}
		if err := m.callbacks.Send(a.text); err != nil {
			m.err = err
			log.Error().Err(err).Msg("error sending message")
			break
		}
		m.err = nil
		m.appendLine(a.echo)
	}
	return m, nil
}

func (m Model) updateFiles(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "esc":
		m.currentPage = ChatPage
		return m, m.input.Focus()
	case "up", "k":
		m.selected = max(m.selected-1, 0)
	case "down", "j":
		m.selected = min(m.selected+1, max(len(m.files)-1, 0))
	case "enter":
		return m.startDownload(m.selected)
	case "ctrl+o":
		return m.openPicker()
	}
	return m, nil
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	if m.transfer != "" {
		m.appendLine("---- Wait for the current transfer to finish.")
		return m, nil
	}
	m.currentPage = UploadPage
	m.input.Blur()
	return m, m.picker.Init()
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.currentPage = ChatPage
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.currentPage = ChatPage
		m.transfer = "Uploading " + path
		var upload tea.Cmd
		if m.callbacks.Upload != nil {
			upload = m.callbacks.Upload(path)
		}
		return m, tea.Batch(cmd, m.input.Focus(), upload)
	}
	return m, cmd
}

func (m Model) startDownload(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.files) {
		m.appendLine(fmt.Sprintf("---- No such file: %d", i+1))
		return m, nil
	}
	if m.transfer != "" {
		m.appendLine("---- Wait for the current transfer to finish.")
		return m, nil
	}
	f := m.files[i]
	m.transfer = "Downloading " + f.Filename
	if m.callbacks.Download == nil {
		return m, nil
	}
	return m, m.callbacks.Download(f)
}

func (m *Model) appendLine(text string) {
	m.lines = append(m.lines, line{at: time.Now(), text: text})
	m.updateContent()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 1
	inputHeight := 3
	statusHeight := 1
	verticalMargin := headerHeight + inputHeight + statusHeight + 1

	m.viewport.Width = max(width-sidebarWidth-2, 10)
	m.viewport.Height = max(height-verticalMargin, 3)
	m.input.Width = max(width-8, 10)
	m.progress.Width = max(width/2, 10)
	m.picker.Height = max(height-verticalMargin, 3)
	m.updateContent()
}

func (m *Model) updateContent() {
	var sb strings.Builder
	for _, l := range m.lines {
		sb.WriteString(timestampStyle.Render(l.at.Format("15:04:05")))
		sb.WriteString(l.text)
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	switch m.currentPage {
	case UploadPage:
		sb.WriteString("Pick a file to share (esc to cancel)\n")
		sb.WriteString(m.picker.View())
		return sb.String()
	case FilesPage:
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(m.viewport.Width).Height(m.viewport.Height).Render(m.renderFiles(true)),
			sidebarStyle.Height(m.viewport.Height).Render(m.renderPeers())))
	default:
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			sidebarStyle.Height(m.viewport.Height).Render(m.renderPeers()+"\n\n"+m.renderFiles(false))))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n")
	sb.WriteString(inputStyle.Render(m.input.View()))

	return sb.String()
}

func (m Model) renderHeader() string {
	tabNames := []string{"Chat", "Files", "Upload"}

	var renderedTabs []string
	for i, name := range tabNames {
		style := tabStyle
		if Page(i) == m.currentPage {
			style = activeTabStyle
		}
		if Page(i) == FilesPage && len(m.files) > 0 {
			name = fmt.Sprintf("%s %d", name, len(m.files))
		}
		renderedTabs = append(renderedTabs, style.Render(name))
	}
	renderedTabs = append(renderedTabs, tabStyle.Render(m.nickname))

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m Model) renderPeers() string {
	var sb strings.Builder
	sb.WriteString(sectionStyle.Render(fmt.Sprintf("Online (%d)", len(m.peers))))
	for _, p := range m.peers {
		sb.WriteString("\n")
		if p == m.nickname {
			p += " (You)"
		}
		sb.WriteString(p)
	}
	return sb.String()
}

func (m Model) renderFiles(selectable bool) string {
	var sb strings.Builder
	sb.WriteString(sectionStyle.Render(fmt.Sprintf("Files (%d)", len(m.files))))
	if len(m.files) == 0 {
		sb.WriteString("\nNo shared files yet. ctrl+o to share one.")
	}
	for i, f := range m.files {
		entry := fmt.Sprintf("%d. %s", i+1, f.Filename)
		if selectable && i == m.selected {
			entry = selectedStyle.Render("> " + entry)
		}
		sb.WriteString("\n")
		sb.WriteString(entry)
	}
	if selectable && len(m.files) > 0 {
		sb.WriteString("\n\nEnter to download • tab to go back")
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return errorStyle.Render(m.err.Error())
	case m.transfer != "":
		return fmt.Sprintf("%s %s %s", m.transfer, m.progress.View(), humanize.Bytes(uint64(m.transferred)))
	}
	return ""
}
