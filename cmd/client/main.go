// cmd/client/main.go
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanchat/internal/client/models"
	"lanchat/internal/client/network"
	"lanchat/internal/client/tui"
	"lanchat/internal/config"
	"lanchat/pkg/protocol"
)

type loginResultMsg struct {
	nickname string
	err      error
}

type AppModel struct {
	loginModel tui.LoginModel
	chatModel  tui.Model
	cfg        config.Config
	conn       *network.Connection
	handler    *network.ConnectionHandler
	size       tea.WindowSizeMsg
	isLoggedIn bool
	err        error
}

func NewAppModel(cfg config.Config) AppModel {
	return AppModel{
		loginModel: tui.NewLoginModel(cfg.ChatAddr()),
		cfg:        cfg,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.loginModel.Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tui.LoginSubmitMsg:
		if m.conn == nil {
			conn, err := network.NewConnection(m.cfg.ChatAddr())
			if err != nil {
				log.Error().Err(err).Str("addr", m.cfg.ChatAddr()).Msg("connection error")
				m.err = fmt.Errorf("cannot connect to %s: %w", m.cfg.ChatAddr(), err)
				return m, tea.Quit
			}
			log.Info().Str("addr", conn.RemoteAddr().String()).Msg("connected")
			m.conn = conn
			m.handler = network.NewConnectionHandler(conn)
		}
		handler := m.handler
		return m, func() tea.Msg {
			return loginResultMsg{nickname: msg.Nickname, err: handler.Login(msg.Nickname)}
		}

	case loginResultMsg:
		switch {
		case errors.Is(msg.err, network.ErrNicknameTaken):
			m.loginModel.SetError(tui.ErrNicknameInUse)
			return m, nil
		case msg.err != nil:
			log.Error().Err(msg.err).Msg("login failed")
			m.err = msg.err
			return m, tea.Quit
		}

		log.Info().Str("nickname", msg.nickname).Msg("logged in")
		m.isLoggedIn = true
		m.setupHandler()
		m.chatModel = tui.NewModel(msg.nickname, m.callbacks(msg.nickname))
		m.handler.Start()

		if m.size.Width > 0 {
			newModel, _ := m.chatModel.Update(m.size)
			m.chatModel = newModel.(tui.Model)
		}
		return m, m.chatModel.Init()

	case tea.WindowSizeMsg:
		m.size = msg
	}

	if m.isLoggedIn {
		newModel, newCmd := m.chatModel.Update(msg)
		if chatModel, ok := newModel.(tui.Model); ok {
			m.chatModel = chatModel
			cmd = newCmd
		}
	} else {
		newModel, newCmd := m.loginModel.Update(msg)
		if loginModel, ok := newModel.(tui.LoginModel); ok {
			m.loginModel = loginModel
			cmd = newCmd
		}
	}

	return m, cmd
}

func (m AppModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	if m.isLoggedIn {
		return m.chatModel.View()
	}
	return m.loginModel.View()
}

func (m *AppModel) setupHandler() {
	m.handler.SetMessageHandler(func(text string) {
		send(models.MessageReceived{Text: text})
	})

	m.handler.SetDirectiveHandler(func(d protocol.Directive) {
		switch d.Op {
		case protocol.OpUpdate:
			send(models.PeerJoined{Nickname: d.Nickname})
		case protocol.OpRemove:
			send(models.PeerLeft{Nickname: d.Nickname})
		case protocol.OpUpdateFile:
			send(models.FileShared{File: models.SharedFile{Filename: d.Filename, Token: d.Token}})
		}
	})

	m.handler.SetDisconnectHandler(func(err error) {
		send(models.Disconnected{Err: err})
	})
}

func (m *AppModel) callbacks(nickname string) tui.Callbacks {
	cfg := m.cfg
	return tui.Callbacks{
		Send: m.handler.SendMessage,
		Upload: func(path string) tea.Cmd {
			return func() tea.Msg {
				err := network.Upload(cfg.UploadAddr(), nickname, path, throttled())
				if err != nil {
					log.Error().Err(err).Str("path", path).Msg("upload failed")
				}
				return models.TransferFinished{Summary: "Shared " + filepath.Base(path), Err: err}
			}
		},
		Download: func(f models.SharedFile) tea.Cmd {
			return func() tea.Msg {
				path, err := network.Download(cfg.DownloadAddr(), f.Token, cfg.DownloadDir, throttled())
				if err != nil {
					log.Error().Err(err).Str("file", f.Filename).Msg("download failed")
					return models.TransferFinished{Err: err}
				}
				summary := "Saved " + path
				if info, err := os.Stat(path); err == nil {
					summary += " (" + humanize.Bytes(uint64(info.Size())) + ")"
				}
				return models.TransferFinished{Summary: summary}
			}
		},
	}
}

// throttled limits progress updates to a few per second.
func throttled() network.ProgressFunc {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(done, total int64) {
		mu.Lock()
		defer mu.Unlock()
		if done != total && time.Since(last) < 100*time.Millisecond {
			return
		}
		last = time.Now()
		send(models.TransferProgress{Done: done, Total: total})
	}
}

var p *tea.Program

func send(msg tea.Msg) {
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	// log file
	logFile, err := os.OpenFile("client.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	model := NewAppModel(cfg)

	// start program
	p = tea.NewProgram(model, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("error running program")
	}
	if app, ok := final.(AppModel); ok {
		if app.handler != nil {
			app.handler.Close()
		}
		if app.err != nil {
			fmt.Fprintln(os.Stderr, app.err)
			os.Exit(1)
		}
	}
}
