package session

import (
	"fmt"
	"strings"

	"github.com/desertthunder/limuzic/internal/models"
)

// Phase is the transport sub-state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePlaying
	PhasePaused
	PhaseAdvancing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseAdvancing:
		return "advancing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase parses the name produced by [Phase.String].
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle", "":
		return PhaseIdle, nil
	case "loading":
		return PhaseLoading, nil
	case "playing":
		return PhasePlaying, nil
	case "paused":
		return PhasePaused, nil
	case "advancing":
		return PhaseAdvancing, nil
	default:
		return PhaseIdle, fmt.Errorf("unknown phase %q", s)
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *Phase) UnmarshalText(b []byte) error {
	phase, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = phase
	return nil
}

// DefaultVolume is the initial session volume.
const DefaultVolume = 80

// LoadErrorMessage is shown when a browse context could not be fetched.
const LoadErrorMessage = "failed to load content"

// State is the session state owned by a [Controller].
type State struct {
	Queue          []models.Track       `json:"queue"`
	CurrentTrackID string               `json:"currentTrackId,omitempty"`
	IsPlaying      bool                 `json:"isPlaying"`
	IsExpanded     bool                 `json:"isExpanded"`
	Volume         int                  `json:"volume"`
	Position       float64              `json:"position"`
	Duration       float64              `json:"duration"`
	Shuffle        bool                 `json:"shuffle"`
	Repeat         models.RepeatMode    `json:"repeat"`
	Phase          Phase                `json:"phase"`
	Context        models.BrowseContext `json:"context"`
	Loading        bool                 `json:"loading"`
	LastError      string               `json:"lastError,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Queue = append([]models.Track(nil), s.Queue...)
	return out
}

// Snapshot is an immutable copy of the session for views.
type Snapshot struct {
	State
	Current *models.Track `json:"current,omitempty"`
	UpNext  *models.Track `json:"upNext,omitempty"`
	Polling bool          `json:"polling"`
}

// Progress returns the position as a percentage of the duration, or 0 when the duration is unknown.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(100, max(0, s.Position/s.Duration*100))
}
