// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"lanchat/internal/config"
	"lanchat/internal/server/handlers"
	"lanchat/internal/server/registry"
	"lanchat/internal/server/storage"
	"lanchat/pkg/protocol"
)

// Server owns the listeners, both registries and the upload storage of one
// run.
type Server struct {
	cfg     config.Config
	clients *registry.Clients
	files   *storage.Files

	events      *handlers.EventHandler
	notifier    *handlers.Notifier
	authHandler *handlers.AuthHandler
	msgHandler  *handlers.MessageHandler
	transfer    *handlers.TransferHandler

	mu        sync.Mutex
	chatLn    net.Listener
	uploadLn  net.Listener
	downLn    net.Listener
	conns     map[net.Conn]struct{}
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewServer(cfg config.Config) (*Server, error) {
	files, err := storage.Open(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	clients := registry.NewClients()
	events := handlers.NewEventHandler(clients)
	notifier := handlers.NewNotifier(clients, events)

	return &Server{
		cfg:         cfg,
		clients:     clients,
		files:       files,
		events:      events,
		notifier:    notifier,
		authHandler: handlers.NewAuthHandler(clients, cfg.OutboxSize),
		msgHandler:  handlers.NewMessageHandler(clients, events),
		transfer:    handlers.NewTransferHandler(files, notifier),
		conns:       make(map[net.Conn]struct{}),
		quit:        make(chan struct{}),
	}, nil
}

// Start binds the chat, upload and download listeners and starts their
// accept loops. A bind failure closes whatever was already bound.
func (s *Server) Start() error {
	chatLn, err := net.Listen("tcp", s.cfg.ChatAddr())
	if err != nil {
		return fmt.Errorf("listen chat: %w", err)
	}
	uploadLn, err := net.Listen("tcp", s.cfg.UploadAddr())
	if err != nil {
		chatLn.Close()
		return fmt.Errorf("listen upload: %w", err)
	}
	downLn, err := net.Listen("tcp", s.cfg.DownloadAddr())
	if err != nil {
		chatLn.Close()
		uploadLn.Close()
		return fmt.Errorf("listen download: %w", err)
	}

	s.mu.Lock()
	s.chatLn, s.uploadLn, s.downLn = chatLn, uploadLn, downLn
	s.mu.Unlock()

	log.Info().
		Str("chat", chatLn.Addr().String()).
		Str("upload", uploadLn.Addr().String()).
		Str("download", downLn.Addr().String()).
		Str("storage", s.files.Root()).
		Msg("server started")

	s.serve(chatLn, "chat", s.handleConnection)
	s.serve(uploadLn, "upload", s.handleUpload)
	s.serve(downLn, "download", s.handleDownload)
	return nil
}

func (s *Server) ChatAddr() string     { return s.chatLn.Addr().String() }
func (s *Server) UploadAddr() string   { return s.uploadLn.Addr().String() }
func (s *Server) DownloadAddr() string { return s.downLn.Addr().String() }

// Clients exposes the registry for inspection.
func (s *Server) Clients() *registry.Clients {
	return s.clients
}

func (s *Server) serve(ln net.Listener, name string, handle func(net.Conn)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-s.quit:
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Error().Err(err).Str("listener", name).Msg("error accepting connection")
				continue
			}
			if !s.track(conn) {
				conn.Close()
				return
			}

			log.Debug().Str("listener", name).Str("addr", conn.RemoteAddr().String()).Msg("connection accepted")
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.untrack(conn)
				handle(conn)
			}()
		}
	}()
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quit:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) handleConnection(conn net.Conn) {
	reader := protocol.NewReader(conn)
	reader.SetMaxFrames(s.cfg.MaxFrames)
	if s.cfg.ContinuationWait > 0 {
		reader.SetContinuationWait(s.cfg.ContinuationWait)
	}
	client, err := s.authHandler.HandleAuth(conn, reader)
	if err != nil {
		log.Debug().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("connection closed before registration")
		return
	}
	log.Info().Str("nickname", client.Nickname).Str("addr", client.Addr).Msg("client registered")

	// writer first so the presence burst cannot overflow the outbox
	errChan := make(chan error, 2)
	go func() { errChan <- client.WritePump() }()

	s.notifier.Joined(client)

	go func() { errChan <- s.msgHandler.ReadPump(client, reader) }()

	err = <-errChan
	client.Close()
	<-errChan

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		log.Debug().Err(err).Str("nickname", client.Nickname).Msg("client error")
	}
	s.notifier.Left(client)
}

func (s *Server) handleUpload(conn net.Conn) {
	if err := s.transfer.HandleUpload(conn); err != nil {
		log.Warn().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("upload aborted")
	}
}

func (s *Server) handleDownload(conn net.Conn) {
	if err := s.transfer.HandleDownload(conn); err != nil {
		log.Warn().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("download aborted")
	}
}

// Shutdown stops accepting, closes every live connection, waits for the
// handlers (bounded by ctx) and then removes the upload storage.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.quit)
		for _, ln := range []net.Listener{s.chatLn, s.uploadLn, s.downLn} {
			if ln != nil {
				ln.Close()
			}
		}
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if cerr := s.files.Close(); cerr != nil && err == nil {
		err = cerr
	}
	log.Info().Msg("server stopped")
	return err
}
