// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"lanchat/pkg/protocol"
)

const (
	DefaultChatPort     = 9999
	DefaultUploadPort   = 8080
	DefaultDownloadPort = 9000
	DefaultOutboxSize   = 256

	maxFrames         = 4096
	maxContinuationMS = 10000

	maxPort = 65535
)

// Config holds everything the server and client read from the environment.
type Config struct {
	Host         string
	ChatPort     int
	UploadPort   int
	DownloadPort int
	StorageDir   string
	DownloadDir  string
	OutboxSize   int
	LogLevel     zerolog.Level

	// MaxFrames bounds how many frames one chat message may span.
	MaxFrames int
	// ContinuationWait bounds the wait for the frame after an unpadded one.
	// Zero keeps the protocol default.
	ContinuationWait time.Duration
}

func (c Config) ChatAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.ChatPort))
}

func (c Config) UploadAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.UploadPort))
}

func (c Config) DownloadAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.DownloadPort))
}

// Load reads an optional .env file (the given files, or ./.env) and then
// the process environment. Variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Host:        os.Getenv("SERVER_HOST"),
		StorageDir:  os.Getenv("STORAGE_DIR"),
		DownloadDir: os.Getenv("DOWNLOAD_DIR"),
		LogLevel:    zerolog.InfoLevel,
	}

	var err error
	if cfg.ChatPort, err = intVar("CHAT_PORT", DefaultChatPort, maxPort); err != nil {
		return Config{}, err
	}
	if cfg.UploadPort, err = intVar("UPLOAD_PORT", DefaultUploadPort, maxPort); err != nil {
		return Config{}, err
	}
	if cfg.DownloadPort, err = intVar("DOWNLOAD_PORT", DefaultDownloadPort, maxPort); err != nil {
		return Config{}, err
	}
	if cfg.OutboxSize, err = intVar("OUTBOX_SIZE", DefaultOutboxSize, 1<<20); err != nil {
		return Config{}, err
	}
	if cfg.OutboxSize < 1 {
		return Config{}, fmt.Errorf("OUTBOX_SIZE must be positive, got %d", cfg.OutboxSize)
	}
	if cfg.MaxFrames, err = intVar("MAX_FRAMES", protocol.DefaultMaxFrames, maxFrames); err != nil {
		return Config{}, err
	}
	if cfg.MaxFrames < 1 {
		return Config{}, fmt.Errorf("MAX_FRAMES must be positive, got %d", cfg.MaxFrames)
	}
	waitMS, err := intVar("CONTINUATION_WAIT_MS", int(protocol.DefaultContinuationWait/time.Millisecond), maxContinuationMS)
	if err != nil {
		return Config{}, err
	}
	cfg.ContinuationWait = time.Duration(waitMS) * time.Millisecond

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if cfg.LogLevel, err = zerolog.ParseLevel(level); err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = os.TempDir()
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "."
	}
	return cfg, nil
}

func intVar(name string, def, limit int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if v < 0 || v > limit {
		return 0, fmt.Errorf("%s out of range: %d", name, v)
	}
	return v, nil
}
