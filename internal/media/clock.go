package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/shared"
)

// DurationFunc returns the length in seconds of a track, or 0 when unknown.
type DurationFunc func(trackID string) float64

// Clock is a simulated engine whose position advances with time while playing.
//
// Ended is emitted when the position reaches the duration, either from a timer or when the position is read.
// Tracks with an unknown duration never end.
type Clock struct {
	mu       sync.Mutex
	now      func() time.Time
	lookup   DurationFunc
	logger   *log.Logger
	events   chan Event
	timer    *time.Timer
	trackID  string
	duration float64
	offset   float64
	anchor   time.Time
	playing  bool
	ended    bool
	volume   int
	closed   bool
}

// ClockOption configures a [Clock].
type ClockOption func(*Clock)

// WithNow injects the time source.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) { c.now = now }
}

// WithClockLogger sets the logger.
func WithClockLogger(l *log.Logger) ClockOption {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClock creates a simulated backend; lookup may be nil.
func NewClock(lookup DurationFunc, opts ...ClockOption) *Clock {
	if lookup == nil {
		lookup = func(string) float64 { return 0 }
	}
	c := &Clock{
		now:    time.Now,
		lookup: lookup,
		logger: log.Default(),
		events: make(chan Event, eventBuffer),
		volume: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events implements [Backend].
func (c *Clock) Events() <-chan Event {
	return c.events
}

// Load cues trackID at position 0 and emits Ready.
func (c *Clock) Load(trackID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrBackendClosed
	}

	c.stopTimer()
	c.trackID = trackID
	c.duration = c.lookup(trackID)
	c.offset = 0
	c.playing = false
	c.ended = false

	c.emit(Event{Kind: EventStateChanged, TrackID: trackID, State: StateCued})
	c.emit(Event{Kind: EventReady, TrackID: trackID})
	return nil
}

// Play starts or resumes the loaded track.
func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrBackendClosed
	}
	if c.trackID == "" {
		return fmt.Errorf("%w: nothing loaded", shared.ErrBackendUnavailable)
	}
	if c.playing {
		return nil
	}

	if c.ended {
		c.offset = 0
		c.ended = false
	}
	c.playing = true
	c.anchor = c.now()
	c.schedule()
	c.emit(Event{Kind: EventStateChanged, TrackID: c.trackID, State: StatePlaying})
	return nil
}

// Pause freezes the position.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrBackendClosed
	}
	if !c.playing {
		return nil
	}

	c.offset = c.position()
	c.playing = false
	c.stopTimer()
	c.emit(Event{Kind: EventStateChanged, TrackID: c.trackID, State: StatePaused})
	return nil
}

// SeekTo jumps to seconds, clamped to the track bounds.
func (c *Clock) SeekTo(seconds float64, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrBackendClosed
	}

	seconds = max(0, seconds)
	if c.duration > 0 {
		seconds = min(seconds, c.duration)
	}
	c.offset = seconds
	c.ended = false
	if c.playing {
		c.anchor = c.now()
		c.schedule()
	}
	return nil
}

// SetVolume stores the clamped volume.
func (c *Clock) SetVolume(volume int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrBackendClosed
	}
	c.volume = ClampVolume(volume)
	return nil
}

// Volume returns the last volume set.
func (c *Clock) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Position returns the current position, emitting Ended when the track has run out.
func (c *Clock) Position() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkEnded()
	return c.position(), nil
}

// Duration returns the loaded track's duration.
func (c *Clock) Duration() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration, nil
}

// Close stops timers and closes the event channel.
func (c *Clock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.stopTimer()
	close(c.events)
	return nil
}

func (c *Clock) position() float64 {
	pos := c.offset
	if c.playing {
		pos += c.now().Sub(c.anchor).Seconds()
	}
	if c.duration > 0 {
		pos = min(pos, c.duration)
	}
	return pos
}

func (c *Clock) checkEnded() {
	if c.closed || !c.playing || c.duration <= 0 {
		return
	}
	if c.position() < c.duration {
		return
	}

	c.offset = c.duration
	c.playing = false
	c.ended = true
	c.stopTimer()
	c.emit(Event{Kind: EventStateChanged, TrackID: c.trackID, State: StateEnded})
	c.emit(Event{Kind: EventEnded, TrackID: c.trackID})
}

func (c *Clock) schedule() {
	c.stopTimer()
	if c.duration <= 0 {
		return
	}

	remaining := time.Duration((c.duration - c.offset) * float64(time.Second))
	c.timer = time.AfterFunc(max(remaining, 0), func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.checkEnded()
	})
}

func (c *Clock) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// emit must be called with mu held.
func (c *Clock) emit(ev Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("dropping backend event", "kind", ev.Kind, "track", ev.TrackID)
	}
}
