// pkg/protocol/nickname.go
package protocol

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

const (
	MinNicknameLen = 2
	MaxNicknameLen = 16
)

var ErrInvalidNickname = errors.New("protocol: invalid nickname")

func isSeparator(r rune) bool {
	return r == '_' || r == '.'
}

// ValidateNickname checks a candidate nickname: 2-16 characters of letters,
// digits, '_', '.' and spaces, with no separator or space at either end,
// no doubled '_'/'.' run and no doubled whitespace.
func ValidateNickname(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidNickname)
	}
	n := utf8.RuneCountInString(name)
	if n < MinNicknameLen || n > MaxNicknameLen {
		return fmt.Errorf("%w: length %d", ErrInvalidNickname, n)
	}

	var prev rune
	for i, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		case isSeparator(r):
			if i > 0 && isSeparator(prev) {
				return fmt.Errorf("%w: repeated separator", ErrInvalidNickname)
			}
		case unicode.IsSpace(r):
			if i > 0 && unicode.IsSpace(prev) {
				return fmt.Errorf("%w: repeated whitespace", ErrInvalidNickname)
			}
		default:
			return fmt.Errorf("%w: character %q", ErrInvalidNickname, r)
		}
		if i == 0 && (isSeparator(r) || unicode.IsSpace(r)) {
			return fmt.Errorf("%w: bad leading character", ErrInvalidNickname)
		}
		prev = r
	}
	if isSeparator(prev) || unicode.IsSpace(prev) {
		return fmt.Errorf("%w: bad trailing character", ErrInvalidNickname)
	}
	return nil
}
