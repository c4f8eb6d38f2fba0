// internal/server/handlers/transfer.go
package handlers

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lanchat/internal/server/storage"
	"lanchat/pkg/protocol"
)

// TransferHandler serves the single shot upload and download exchanges.
type TransferHandler struct {
	files    *storage.Files
	notifier *Notifier
}

func NewTransferHandler(files *storage.Files, notifier *Notifier) *TransferHandler {
	return &TransferHandler{
		files:    files,
		notifier: notifier,
	}
}

// HandleUpload reads the metadata frame, answers READY and stores the rest
// of the stream. The record is published only after end of stream.
func (h *TransferHandler) HandleUpload(conn net.Conn) (err error) {
	frame, err := protocol.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("read upload metadata: %w", err)
	}
	req, err := protocol.ParseUpload(string(protocol.TrimPadding(frame)))
	if err != nil {
		return err
	}

	rec, err := h.files.CreateRecord(req.Filename, req.Owner)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			h.files.Abort(rec.Token)
		}
	}()

	w, err := h.files.Create(rec.Token)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer w.Close()

	if err := sendResponse(conn, protocol.Text(protocol.SignalReady)); err != nil {
		return err
	}

	n, err := io.Copy(w, conn)
	if err != nil {
		return fmt.Errorf("receive %s: %w", req.Filename, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", req.Filename, err)
	}

	rec, err = h.files.Finalize(rec.Token, n)
	if err != nil {
		return err
	}
	log.Info().
		Str("owner", rec.Owner).
		Str("filename", rec.Filename).
		Str("token", rec.Token).
		Int64("bytes", n).
		Msg("upload stored")

	h.notifier.FileShared(rec)
	return nil
}

// HandleDownload answers a token frame with the filename frame followed
// by the raw file bytes. Unknown tokens get no answer at all.
func (h *TransferHandler) HandleDownload(conn net.Conn) error {
	frame, err := protocol.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("read download token: %w", err)
	}
	token := strings.TrimSpace(string(protocol.TrimPadding(frame)))

	rec, f, err := h.files.Open(token)
	if err != nil {
		return fmt.Errorf("download %q: %w", token, err)
	}
	defer f.Close()

	if _, err := conn.Write(protocol.Text(rec.Filename).Frames()); err != nil {
		return fmt.Errorf("send filename: %w", err)
	}
	n, err := io.Copy(conn, f)
	if err != nil {
		return fmt.Errorf("send %s: %w", rec.Filename, err)
	}
	log.Info().
		Str("token", rec.Token).
		Str("filename", rec.Filename).
		Int64("bytes", n).
		Dur("age", time.Since(rec.CreatedAt)).
		Msg("download served")
	return nil
}
