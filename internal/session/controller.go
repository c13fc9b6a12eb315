package session

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/media"
	"github.com/desertthunder/limuzic/internal/models"
)

// TrackFinder resolves a track id against the user's playlists.
type TrackFinder interface {
	FindTrack(id string) (models.Track, bool)
}

// Controller is the playback state machine.
type Controller struct {
	state   State
	backend media.Backend
	tracks  TrackFinder
	random  func(n int) int
	logger  *log.Logger
	current *models.Track
}

// ControllerOption configures a [Controller].
type ControllerOption func(*Controller)

// WithRandom replaces the shuffle source. fn must return a value in [0, n).
func WithRandom(fn func(n int) int) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.random = fn
		}
	}
}

// WithVolume sets the initial volume.
func WithVolume(v int) ControllerOption {
	return func(c *Controller) { c.state.Volume = media.ClampVolume(v) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates an idle session driving backend. tracks may be nil.
func NewController(backend media.Backend, tracks TrackFinder, opts ...ControllerOption) *Controller {
	c := &Controller{
		state: State{
			Queue:   []models.Track{},
			Volume:  DefaultVolume,
			Phase:   PhaseIdle,
			Context: models.BrowseContext{View: models.ViewHome},
		},
		backend: backend,
		tracks:  tracks,
		random:  rand.IntN,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the session state.
func (c *Controller) State() State {
	return c.state.clone()
}

// Current returns the resolved current track.
func (c *Controller) Current() (models.Track, bool) {
	if c.current == nil {
		return models.Track{}, false
	}
	return *c.current, true
}

// UpNext returns the track shown as next: the one after the current track, or the first when the current track
// is last or not queued.
func (c *Controller) UpNext() (models.Track, bool) {
	q := c.state.Queue
	if len(q) == 0 {
		return models.Track{}, false
	}
	if idx := c.queueIndex(); idx >= 0 && idx < len(q)-1 {
		return q[idx+1], true
	}
	return q[0], true
}

// Snapshot builds an immutable view of the session.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{State: c.state.clone()}
	if t, ok := c.Current(); ok {
		snap.Current = &t
	}
	if t, ok := c.UpNext(); ok {
		snap.UpNext = &t
	}
	return snap
}

func (c *Controller) queueIndex() int {
	if c.state.CurrentTrackID == "" {
		return -1
	}
	for i, t := range c.state.Queue {
		if t.ID == c.state.CurrentTrackID {
			return i
		}
	}
	return -1
}

func (c *Controller) command(name string, err error) {
	if err != nil {
		c.logger.Warn("backend command failed", "command", name, "error", err)
	}
}

// load makes t current and instructs the backend to load it, playing as soon as possible when IsPlaying is set.
func (c *Controller) load(t models.Track) {
	c.state.CurrentTrackID = t.ID
	c.state.Position = 0
	c.state.Duration = t.DurationSeconds
	c.state.Phase = PhaseLoading

	c.logger.Debug("loading track", "id", t.ID, "title", t.Title)
	c.command("load", c.backend.Load(t.ID))
	if c.state.IsPlaying {
		c.command("play", c.backend.Play())
	}
	c.ResolveCurrentTrack()
}

// restart rewinds the current track and plays it.
func (c *Controller) restart() {
	c.command("seek", c.backend.SeekTo(0, true))
	c.state.Position = 0
	c.state.IsPlaying = true
	c.command("play", c.backend.Play())
	if c.state.Phase != PhaseLoading {
		c.state.Phase = PhasePlaying
	}
}

// stop pauses without changing the current track.
func (c *Controller) stop() {
	c.state.IsPlaying = false
	c.command("pause", c.backend.Pause())
	if c.state.Phase != PhaseLoading {
		c.state.Phase = PhasePaused
	}
}

// applyTransport forwards IsPlaying to the backend. While loading only the command is sent; readiness settles the
// phase.
func (c *Controller) applyTransport() {
	if c.state.IsPlaying {
		c.command("play", c.backend.Play())
	} else {
		c.command("pause", c.backend.Pause())
	}

	if c.state.Phase == PhaseLoading {
		return
	}
	if c.state.IsPlaying {
		c.state.Phase = PhasePlaying
	} else {
		c.state.Phase = PhasePaused
	}
}

// SelectTrack applies the click contract for t.
//
// When t is current, the first selection opens the expanded view and the next toggles play/pause. A different
// track is loaded, played and shown expanded.
func (c *Controller) SelectTrack(t models.Track) {
	if t.ID == "" {
		return
	}

	if t.ID == c.state.CurrentTrackID {
		if !c.state.IsExpanded {
			c.state.IsExpanded = true
			return
		}
		c.TogglePlay()
		return
	}

	c.state.IsPlaying = true
	c.state.IsExpanded = true
	c.load(t)
}

// TogglePlay flips between playing and paused. It does nothing before a track was selected.
func (c *Controller) TogglePlay() {
	if c.state.CurrentTrackID == "" {
		return
	}
	c.state.IsPlaying = !c.state.IsPlaying
	c.applyTransport()
}

// Advance moves through the queue.
//
// Next under shuffle picks a random index, stepping once past the current index when the queue has more than one
// track. Next without shuffle steps forward with wraparound, except that with repeat off the last track stops
// playback instead. Prev always steps back with wraparound. A track missing from the queue counts as index -1.
// An empty queue leaves the session as it is, except that an ended track settles to paused.
func (c *Controller) Advance(dir models.Direction) {
	n := len(c.state.Queue)
	if n == 0 {
		if c.state.Phase == PhaseAdvancing {
			c.stop()
		}
		return
	}

	idx := c.queueIndex()
	next := 0

	switch dir {
	case models.Prev:
		if idx >= 0 {
			next = (idx - 1 + n) % n
		}
	default:
		switch {
		case c.state.Shuffle:
			next = c.pick(n)
			if n > 1 && next == idx {
				next = (next + 1) % n
			}
		case idx >= 0:
			if c.state.Repeat == models.RepeatOff && idx == n-1 {
				c.stop()
				return
			}
			next = (idx + 1) % n
		}
	}

	t := c.state.Queue[next]
	c.logger.Debug("advance", "direction", dir, "from", idx, "to", next, "shuffle", c.state.Shuffle, "repeat", c.state.Repeat)

	c.state.IsPlaying = true
	if t.ID == c.state.CurrentTrackID {
		c.restart()
		return
	}
	c.load(t)
}

func (c *Controller) pick(n int) int {
	r := c.random(n)
	return ((r % n) + n) % n
}

// OnTrackEnded handles the backend's end event for trackID. Events for a track that is no longer current are
// ignored; an empty id always refers to the current track.
func (c *Controller) OnTrackEnded(trackID string) {
	if c.state.CurrentTrackID == "" || (trackID != "" && trackID != c.state.CurrentTrackID) {
		return
	}

	c.state.Phase = PhaseAdvancing
	if c.state.Repeat == models.RepeatOne {
		c.restart()
		return
	}
	c.Advance(models.Next)
}

// Seek jumps to percent (0-100) of the known duration. It does nothing while the duration is unknown.
func (c *Controller) Seek(percent float64) {
	if c.state.Duration <= 0 {
		return
	}

	percent = min(100, max(0, percent))
	target := percent / 100 * c.state.Duration
	c.command("seek", c.backend.SeekTo(target, true))
	c.state.Position = target
}

// SetVolume clamps v to 0-100, stores it and forwards it to the backend.
func (c *Controller) SetVolume(v int) {
	c.state.Volume = media.ClampVolume(v)
	c.command("volume", c.backend.SetVolume(c.state.Volume))
}

// ToggleShuffle flips shuffle.
func (c *Controller) ToggleShuffle() {
	c.state.Shuffle = !c.state.Shuffle
}

// CycleRepeat moves repeat through off, all and one.
func (c *Controller) CycleRepeat() {
	c.state.Repeat = c.state.Repeat.Next()
}

// SetExpanded opens or closes the expanded player view.
func (c *Controller) SetExpanded(expanded bool) {
	c.state.IsExpanded = expanded
}

// SetQueue replaces the queue with tracks deduplicated by id and re-resolves the current track.
func (c *Controller) SetQueue(tracks []models.Track) {
	c.state.Queue = models.DedupeTracks(tracks)
	c.ResolveCurrentTrack()
}

// SetContext records the active browse context.
func (c *Controller) SetContext(bc models.BrowseContext) {
	if bc.View == "" {
		bc.View = models.ViewHome
	}
	c.state.Context = bc
}

// BeginFetch marks the browse status as loading.
func (c *Controller) BeginFetch() {
	c.state.Loading = true
	c.state.LastError = ""
}

// CompleteFetch applies a successful fetch.
func (c *Controller) CompleteFetch(tracks []models.Track) {
	c.state.Loading = false
	c.state.LastError = ""
	c.SetQueue(tracks)
}

// FailFetch records a recoverable load error and keeps the queue.
func (c *Controller) FailFetch() {
	c.state.Loading = false
	c.state.LastError = LoadErrorMessage
}

// ClearLoading ends the loading status without touching the queue.
func (c *Controller) ClearLoading() {
	c.state.Loading = false
}

// OnProgress records a backend progress sample. Samples without a known duration are ignored.
func (c *Controller) OnProgress(position, duration float64) {
	if duration <= 0 {
		return
	}
	c.state.Position = max(0, position)
	c.state.Duration = duration
}

// OnReady handles the backend's ready event for trackID, applying the volume and starting playback when wanted.
func (c *Controller) OnReady(trackID string) {
	if c.state.CurrentTrackID == "" || (trackID != "" && trackID != c.state.CurrentTrackID) {
		return
	}

	c.command("volume", c.backend.SetVolume(c.state.Volume))
	if c.state.IsPlaying {
		c.command("play", c.backend.Play())
		c.state.Phase = PhasePlaying
	} else {
		c.state.Phase = PhasePaused
	}
}

// OnStateChanged folds an engine state code into the phase.
func (c *Controller) OnStateChanged(code media.StateCode) {
	c.logger.Debug("backend state changed", "state", code, "phase", c.state.Phase)
	if code == media.StatePlaying && c.state.Phase == PhaseLoading && c.state.IsPlaying {
		c.state.Phase = PhasePlaying
	}
}

// ResolveCurrentTrack looks the current id up in the queue, then in every playlist.
//
// An id that resolves nowhere is kept; only the resolved track is cleared.
func (c *Controller) ResolveCurrentTrack() (models.Track, bool) {
	c.current = nil

	id := c.state.CurrentTrackID
	if id == "" {
		return models.Track{}, false
	}

	for _, t := range c.state.Queue {
		if t.ID == id {
			c.current = &t
			return t, true
		}
	}

	if c.tracks != nil {
		if t, ok := c.tracks.FindTrack(id); ok {
			c.current = &t
			return t, true
		}
	}

	c.logger.Debug("current track is orphaned", "id", id)
	return models.Track{}, false
}
