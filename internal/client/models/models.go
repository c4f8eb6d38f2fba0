// internal/client/models/models.go
package models

// SharedFile is a file announced by the server and downloadable by token.
type SharedFile struct {
	Filename string
	Token    string
}

// messages delivered to the UI
type (
	MessageReceived struct {
		Text string
	}

	PeerJoined struct {
		Nickname string
	}

	PeerLeft struct {
		Nickname string
	}

	FileShared struct {
		File SharedFile
	}

	ErrorMsg struct {
		Error string
	}

	Disconnected struct {
		Err error
	}

	// TransferProgress reports bytes moved so far; Total is -1 when the
	// size is not known in advance.
	TransferProgress struct {
		Done  int64
		Total int64
	}

	TransferFinished struct {
		Summary string
		Err     error
	}
)
