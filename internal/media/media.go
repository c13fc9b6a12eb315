package media

import (
	"fmt"
)

// StateCode is an engine transport state.
type StateCode int

const (
	StateUnstarted StateCode = -1
	StateEnded     StateCode = 0
	StatePlaying   StateCode = 1
	StatePaused    StateCode = 2
	StateBuffering StateCode = 3
	StateCued      StateCode = 5
)

func (s StateCode) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind distinguishes backend events.
type EventKind int

const (
	// EventReady is sent once a loaded track can be played.
	EventReady EventKind = iota
	// EventEnded is sent when the loaded track reaches its end.
	EventEnded
	// EventStateChanged carries a new [StateCode].
	EventStateChanged
	// EventError reports a failure the engine could not recover from.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventEnded:
		return "ended"
	case EventStateChanged:
		return "state-changed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a notification emitted by a [Backend].
type Event struct {
	Kind    EventKind
	TrackID string
	State   StateCode
	Err     error
}

// Backend is the capability set of a playback engine.
//
// Commands return once the engine accepted them; their effects are reported through Events.
type Backend interface {
	Load(trackID string) error
	Play() error
	Pause() error
	SeekTo(seconds float64, allowSeekAhead bool) error
	SetVolume(volume int) error
	Position() (float64, error)
	Duration() (float64, error)
	Events() <-chan Event
	Close() error
}

// eventBuffer is the capacity of every backend's event channel.
const eventBuffer = 64

// ClampVolume limits v to 0..100.
func ClampVolume(v int) int {
	return max(0, min(100, v))
}
