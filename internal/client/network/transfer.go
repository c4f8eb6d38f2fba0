// internal/client/network/transfer.go
package network

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lanchat/pkg/protocol"
)

var (
	ErrUploadRefused = errors.New("server refused the upload")
	ErrUnknownToken  = errors.New("file is not available")
)

// ProgressFunc receives the bytes moved so far and the total, or -1 when
// the total is unknown.
type ProgressFunc func(done, total int64)

type progressReader struct {
	r        io.Reader
	done     int64
	total    int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.done += int64(n)
	if n > 0 && p.progress != nil {
		p.progress(p.done, p.total)
	}
	return n, err
}

// Upload sends the file at path to the upload port on behalf of owner and
// returns once the server has stored it.
func Upload(address, owner, path string, progress ProgressFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	conn, err := dial(address)
	if err != nil {
		return fmt.Errorf("connect upload port: %w", err)
	}
	c := wrap(conn)
	defer c.Close()

	req := protocol.UploadRequest{Owner: owner, Filename: filepath.Base(path)}
	if err := c.WritePacket(protocol.Text(req.String())); err != nil {
		return err
	}
	frame, err := protocol.ReadFrame(conn)
	if err != nil || string(protocol.TrimPadding(frame)) != protocol.SignalReady {
		return ErrUploadRefused
	}

	conn.SetWriteDeadline(time.Time{})
	if _, err := io.Copy(conn, &progressReader{r: f, total: info.Size(), progress: progress}); err != nil {
		return fmt.Errorf("send %s: %w", req.Filename, err)
	}

	// half close and wait for the server to hang up once the file is stored
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return err
		}
		io.Copy(io.Discard, conn)
	}
	return nil
}

// Download fetches the file behind token into dir and returns the path it
// was saved to. Existing files are never overwritten.
func Download(address, token, dir string, progress ProgressFunc) (string, error) {
	conn, err := dial(address)
	if err != nil {
		return "", fmt.Errorf("connect download port: %w", err)
	}
	c := wrap(conn)
	defer c.Close()

	if err := c.WritePacket(protocol.Text(token)); err != nil {
		return "", err
	}
	frame, err := protocol.ReadFrame(conn)
	if err != nil {
		return "", ErrUnknownToken
	}
	name := filepath.Base(strings.TrimSpace(string(protocol.TrimPadding(frame))))

	out, path, err := createUnique(dir, name)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, &progressReader{r: conn, total: -1, progress: progress}); err != nil {
		return path, fmt.Errorf("receive %s: %w", name, err)
	}
	return path, out.Close()
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return f, path, err
	}
}
