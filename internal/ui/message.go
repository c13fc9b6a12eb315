package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/limuzic/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshot MsgKind = iota
	MsgSessionClosed
	MsgLibraryResult
)

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(snap session.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: snap}
}

// sessionClosedMsg is the constructor for [MsgSessionClosed]
func sessionClosedMsg() Msg {
	return Msg{kind: MsgSessionClosed}
}

type libraryResult struct {
	status string
	err    error
}

// libraryResultMsg is the constructor for [MsgLibraryResult]
func libraryResultMsg(status string, err error) Msg {
	return Msg{kind: MsgLibraryResult, data: libraryResult{status, err}}
}
