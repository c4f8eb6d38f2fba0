// pkg/protocol/frame.go
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// FrameSize is the fixed length of every unit written to any socket.
const FrameSize = 1024

// DefaultMaxFrames bounds how many continuation frames a Reader joins
// into one message.
const DefaultMaxFrames = 64

var (
	ErrShortFrame      = errors.New("protocol: short frame")
	ErrMessageTooLarge = errors.New("protocol: message exceeds frame limit")
)

// Encode splits payload into NUL padded frames of FrameSize bytes.
// An empty payload still produces one (all padding) frame, and a payload
// that is an exact multiple of FrameSize produces no trailing empty frame.
func Encode(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{make([]byte, FrameSize)}
	}

	frames := make([][]byte, 0, (len(payload)+FrameSize-1)/FrameSize)
	for start := 0; start < len(payload); start += FrameSize {
		end := min(start+FrameSize, len(payload))
		frame := make([]byte, FrameSize)
		copy(frame, payload[start:end])
		frames = append(frames, frame)
	}
	return frames
}

// EncodeString returns the frames for text joined into one buffer, ready
// for a single write.
func EncodeString(text string) []byte {
	return bytes.Join(Encode([]byte(text)), nil)
}

// Decode validates a frame and returns its raw bytes. Padding is left in
// place: trailing NULs are padding, leading NULs mark a control frame.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) != FrameSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortFrame, len(frame))
	}
	return frame, nil
}

// TrimPadding drops trailing NUL padding.
func TrimPadding(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}

// ReadFrame reads exactly one frame. A stream that ends part way through a
// frame yields ErrShortFrame; nothing is buffered across calls.
func ReadFrame(r io.Reader) ([]byte, error) {
	frame := make([]byte, FrameSize)
	n, err := io.ReadFull(r, frame)
	if err != nil {
		return nil, shortFrame(n, err)
	}
	return Decode(frame)
}

func shortFrame(n int, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: got %d bytes", ErrShortFrame, n)
	}
	return err
}

// DefaultContinuationWait is how long a Reader waits for the frame that
// follows an unpadded one before treating the message as complete.
const DefaultContinuationWait = 200 * time.Millisecond

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Reader reassembles messages that span several frames. A frame whose
// last byte is not padding continues into the next frame; the first padded
// frame ends the message.
//
// A payload that is an exact multiple of FrameSize has no padded frame to
// end it. When the underlying reader supports read deadlines (a net.Conn),
// the Reader waits at most the continuation wait for another frame and
// otherwise delivers what it has. The Reader owns the read deadline of
// such a connection. Without deadline support the message is joined with
// whatever frame follows it.
type Reader struct {
	r         io.Reader
	deadline  readDeadliner
	wait      time.Duration
	maxFrames int
}

func NewReader(r io.Reader) *Reader {
	reader := &Reader{r: r, maxFrames: DefaultMaxFrames, wait: DefaultContinuationWait}
	if d, ok := r.(readDeadliner); ok {
		reader.deadline = d
	}
	return reader
}

// SetMaxFrames changes the reassembly limit. Values below 1 are ignored.
func (r *Reader) SetMaxFrames(n int) {
	if n > 0 {
		r.maxFrames = n
	}
}

// SetContinuationWait changes how long to wait for a continuation frame.
// Zero waits indefinitely.
func (r *Reader) SetContinuationWait(d time.Duration) {
	if d >= 0 {
		r.wait = d
	}
}

// ReadFrame reads a single frame without reassembly.
func (r *Reader) ReadFrame() ([]byte, error) {
	return ReadFrame(r.r)
}

// ReadMessage returns the payload of the next message with trailing padding
// removed. When the limit is exceeded the rest of the message is drained
// and ErrMessageTooLarge is returned; the stream stays usable.
func (r *Reader) ReadMessage() ([]byte, error) {
	var buf bytes.Buffer
	frames := 0
	for {
		var (
			frame []byte
			err   error
		)
		if frames == 0 {
			frame, err = r.ReadFrame()
		} else {
			frame, err = r.readContinuation()
		}
		if err != nil {
			return nil, err
		}
		if frame == nil {
			break
		}
		frames++
		if frames <= r.maxFrames {
			buf.Write(frame)
		}
		if frame[FrameSize-1] == 0 {
			break
		}
	}
	if frames > r.maxFrames {
		return nil, fmt.Errorf("%w: %d frames", ErrMessageTooLarge, frames)
	}
	return TrimPadding(buf.Bytes()), nil
}

// readContinuation reads the frame after an unpadded one. It returns a nil
// frame when the stream ends or nothing arrives within the continuation
// wait; the end of stream is reported again by the next read. Once part
// of a frame has arrived the rest is read without a deadline.
func (r *Reader) readContinuation() ([]byte, error) {
	if r.deadline == nil || r.wait == 0 {
		frame, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return frame, err
	}

	if err := r.deadline.SetReadDeadline(time.Now().Add(r.wait)); err != nil {
		return nil, err
	}
	frame := make([]byte, FrameSize)
	n, err := io.ReadFull(r.r, frame)
	if cerr := r.deadline.SetReadDeadline(time.Time{}); cerr != nil && err == nil {
		err = cerr
	}
	if n == 0 && errors.Is(err, io.EOF) {
		return nil, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if n == 0 {
			return nil, nil
		}
		var m int
		m, err = io.ReadFull(r.r, frame[n:])
		n += m
	}
	if err != nil {
		return nil, shortFrame(n, err)
	}
	return frame, nil
}
