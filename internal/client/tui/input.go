// internal/client/tui/input.go
package tui

import (
	"strconv"
	"strings"

	"lanchat/pkg/protocol"
)

type actionKind int

const (
	actionNone actionKind = iota
	actionSend
	actionHelp
	actionClear
	actionQuit
	actionDownload
	actionWarn
)

// action is what one submitted input line asks the client to do.
type action struct {
	kind  actionKind
	text  string // wire text for actionSend, warning for actionWarn
	echo  string // local transcript line for actionSend
	index int    // 1-based file number for actionDownload
}

const (
	warnEmptyMessage = "---- Warning: Cannot send empty message!"
	warnPrivateUsage = "---- Usage: /private (<nickname>) <message>"
	warnDownload     = "---- Usage: /download <number>"
)

var helpLines = []string{
	"---- Commands:",
	"     /private (<nickname>) <message>   send a private message",
	"     /download <number>                download a shared file",
	"     /clear                            clear the transcript",
	"     /quit                             leave the chat",
	"     ctrl+o                            share a file",
	"     tab                               switch between chat and files",
}

func parseInput(line string) action {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return action{kind: actionNone}
	}

	switch trimmed {
	case "/help":
		return action{kind: actionHelp}
	case "/clear":
		return action{kind: actionClear}
	case "/quit", "/exit":
		return action{kind: actionQuit}
	}

	if rest, ok := strings.CutPrefix(trimmed, "/download"); ok && (rest == "" || rest[0] == ' ') {
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || n < 1 {
			return action{kind: actionWarn, text: warnDownload}
		}
		return action{kind: actionDownload, index: n}
	}

	if protocol.IsPrivateCommand(line) {
		cmd, err := protocol.ParsePrivate(line)
		if err != nil {
			if hasEmptyPrivateBody(line) {
				return action{kind: actionWarn, text: warnEmptyMessage}
			}
			return action{kind: actionWarn, text: warnPrivateUsage}
		}
		return action{
			kind: actionSend,
			text: cmd.String(),
			echo: "You to " + cmd.Recipient + ": " + cmd.Text,
		}
	}

	return action{kind: actionSend, text: line, echo: "You: " + line}
}

// hasEmptyPrivateBody reports "/private (name)" with nothing after it.
func hasEmptyPrivateBody(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") == 1
}
