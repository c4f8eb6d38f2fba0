// pkg/protocol/messages.go
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind tells plain chat text apart from control directives. On the wire a
// control packet is marked by a leading NUL byte.
type Kind int

const (
	KindText Kind = iota
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindControl:
		return "control"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// signals exchanged outside the chat stream
const (
	SignalReady      = "READY"
	SignalResendNick = "RESEND_NICK"
)

// Op names a control directive.
type Op string

const (
	OpUpdate     Op = "UPDATE"
	OpRemove     Op = "REMOVE"
	OpUpdateFile Op = "UPDATE_FILE"
)

var ErrUnknownDirective = errors.New("protocol: unknown directive")

// Directive is the body of a control packet.
type Directive struct {
	Op       Op
	Nickname string
	Filename string
	Token    string
}

func NewUpdate(nickname string) Directive {
	return Directive{Op: OpUpdate, Nickname: nickname}
}

func NewRemove(nickname string) Directive {
	return Directive{Op: OpRemove, Nickname: nickname}
}

func NewUpdateFile(filename, token string) Directive {
	return Directive{Op: OpUpdateFile, Filename: filename, Token: token}
}

func (d Directive) String() string {
	switch d.Op {
	case OpUpdateFile:
		return fmt.Sprintf("%s (%s) (%s)", d.Op, d.Filename, d.Token)
	default:
		return fmt.Sprintf("%s (%s)", d.Op, d.Nickname)
	}
}

var (
	updatePattern     = regexp.MustCompile(`^UPDATE \((.+)\)$`)
	removePattern     = regexp.MustCompile(`^REMOVE \((.+)\)$`)
	updateFilePattern = regexp.MustCompile(`^UPDATE_FILE \((.+)\) \(([^()]+)\)$`)
)

// ParseDirective parses a control packet body.
func ParseDirective(body string) (Directive, error) {
	if m := updateFilePattern.FindStringSubmatch(body); m != nil {
		return NewUpdateFile(m[1], m[2]), nil
	}
	if m := updatePattern.FindStringSubmatch(body); m != nil {
		return NewUpdate(m[1]), nil
	}
	if m := removePattern.FindStringSubmatch(body); m != nil {
		return NewRemove(m[1]), nil
	}
	return Directive{}, fmt.Errorf("%w: %q", ErrUnknownDirective, body)
}

// Packet is one logical message carried by one or more frames.
type Packet struct {
	Kind Kind
	Body string
}

func Text(body string) Packet {
	return Packet{Kind: KindText, Body: body}
}

func Control(d Directive) Packet {
	return Packet{Kind: KindControl, Body: d.String()}
}

// Payload returns the unframed wire bytes of the packet.
func (p Packet) Payload() []byte {
	if p.Kind == KindControl {
		return append([]byte{0}, p.Body...)
	}
	return []byte(p.Body)
}

// Frames returns the packet encoded as consecutive frames in one buffer.
func (p Packet) Frames() []byte {
	return bytes.Join(Encode(p.Payload()), nil)
}

// Directive parses the body of a control packet.
func (p Packet) Directive() (Directive, error) {
	if p.Kind != KindControl {
		return Directive{}, fmt.Errorf("%w: %s packet", ErrUnknownDirective, p.Kind)
	}
	return ParseDirective(p.Body)
}

// ParsePacket classifies a received payload by its leading byte. Trailing
// padding is ignored and every leading NUL is stripped from control bodies.
func ParsePacket(payload []byte) Packet {
	payload = TrimPadding(payload)
	if len(payload) > 0 && payload[0] == 0 {
		return Packet{Kind: KindControl, Body: string(bytes.TrimLeft(payload, "\x00"))}
	}
	return Text(string(payload))
}

// server generated text
const (
	NoticeUserNotFound = "————> User not found. Please try again."
	NoticeEmptyMessage = "————> Cannot send empty message!"
	NoticePrivateUsage = "————> Usage: /private (<nickname>) <message>"
	NoticeTooLarge     = "————> Message is too long and was discarded."
)

const announcementWidth = 85

// PublicLine renders a broadcast chat line.
func PublicLine(nickname, text string) string {
	return fmt.Sprintf("[%s]: %s", nickname, text)
}

// PrivateLine renders a private message as seen by its recipient.
func PrivateLine(nickname, text string) string {
	return fmt.Sprintf("[Private from %s]: %s", nickname, text)
}

// Announcement renders a centered server notice line.
func Announcement(text string) string {
	pad := strings.Repeat(" ", max(announcementWidth-len(text), 0)/2)
	return pad + "------   " + text + "   ------" + pad + "\n"
}

func JoinText(nickname string) string {
	return nickname + " joined the chatroom!"
}

func LeaveText(nickname string) string {
	return nickname + " left the chatroom!"
}

func FileText(owner, filename string) string {
	return owner + " shared " + filename
}
