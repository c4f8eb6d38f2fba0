// pkg/protocol/commands.go
package protocol

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

const (
	privatePrefix = "/private"
	uploadPrefix  = "/upload"
)

var ErrMalformed = errors.New("protocol: malformed command")

var (
	privatePattern = regexp.MustCompile(`(?s)^\s*/private\s+\((.{2,16}?)\)\s+(.+)$`)
	uploadPattern  = regexp.MustCompile(`^/upload \((.{2,16}?)\) \((.+)\)$`)
)

// PrivateCommand is a parsed "/private (<nickname>) <text>" line.
type PrivateCommand struct {
	Recipient string
	Text      string
}

func (c PrivateCommand) String() string {
	return fmt.Sprintf("%s (%s) %s", privatePrefix, c.Recipient, c.Text)
}

// IsPrivateCommand reports whether text asks for private delivery,
// regardless of whether the rest of the line is well formed.
func IsPrivateCommand(text string) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(text, unicode.IsSpace), privatePrefix)
}

func ParsePrivate(text string) (PrivateCommand, error) {
	m := privatePattern.FindStringSubmatch(text)
	if m == nil {
		return PrivateCommand{}, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	body := strings.TrimSpace(m[2])
	if body == "" {
		return PrivateCommand{}, fmt.Errorf("%w: empty private text", ErrMalformed)
	}
	return PrivateCommand{Recipient: m[1], Text: body}, nil
}

// UploadRequest is the metadata frame that opens an upload.
type UploadRequest struct {
	Owner    string
	Filename string
}

func (u UploadRequest) String() string {
	return fmt.Sprintf("%s (%s) (%s)", uploadPrefix, u.Owner, u.Filename)
}

// ParseUpload parses upload metadata. The filename is reduced to its base
// name so it can never address anything outside the storage root.
func ParseUpload(text string) (UploadRequest, error) {
	m := uploadPattern.FindStringSubmatch(text)
	if m == nil {
		return UploadRequest{}, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	name := filepath.Base(strings.ReplaceAll(m[2], `\`, "/"))
	if name == "." || name == ".." || name == "/" || strings.TrimSpace(name) == "" {
		return UploadRequest{}, fmt.Errorf("%w: bad filename %q", ErrMalformed, m[2])
	}
	return UploadRequest{Owner: m[1], Filename: name}, nil
}
