package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/media"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/services"
)

// ErrLoopStopped is returned when sending to a loop that has exited.
var ErrLoopStopped = errors.New("session loop stopped")

// DefaultProgressInterval is the progress polling cadence while playing.
const DefaultProgressInterval = time.Second

// FetchPolicy decides which catalog completions may replace the queue.
type FetchPolicy int

const (
	// LastCompletionWins applies every completion in arrival order.
	LastCompletionWins FetchPolicy = iota
	// LatestRequestWins discards completions of superseded requests.
	LatestRequestWins
)

func (p FetchPolicy) String() string {
	if p == LatestRequestWins {
		return "latest-request-wins"
	}
	return "last-completion-wins"
}

// Library is the part of the library store the loop reads and observes.
type Library interface {
	TrackFinder
	Playlist(id string) (models.Playlist, bool)
	AddSearchTerm(ctx context.Context, term string) error
	Subscribe(fn func()) func()
}

// Intent mutates the controller on the loop goroutine.
type Intent func(c *Controller)

// LoopConfig configures a [Loop].
type LoopConfig struct {
	Policy           FetchPolicy
	ProgressInterval time.Duration
	Logger           *log.Logger
}

type request struct {
	fn    func(l *Loop)
	reply chan Snapshot
}

type fetchResult struct {
	token  uint64
	bc     models.BrowseContext
	tracks []models.Track
	err    error
}

// Loop serializes every session input onto one goroutine.
type Loop struct {
	ctrl     *Controller
	backend  media.Backend
	catalog  services.Catalog
	library  Library
	logger   *log.Logger
	policy   FetchPolicy
	interval time.Duration

	requests chan request
	fetches  chan fetchResult
	changed  chan struct{}
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	// owned by the loop goroutine
	runCtx context.Context
	token  uint64
	ticker *time.Ticker

	mu      sync.RWMutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// NewLoop wires a controller to its collaborators. The controller must use the same backend.
func NewLoop(ctrl *Controller, backend media.Backend, catalog services.Catalog, lib Library, cfg LoopConfig) *Loop {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	return &Loop{
		ctrl:     ctrl,
		backend:  backend,
		catalog:  catalog,
		library:  lib,
		logger:   cfg.Logger,
		policy:   cfg.Policy,
		interval: cfg.ProgressInterval,
		requests: make(chan request, 32),
		fetches:  make(chan fetchResult, 8),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		snap:     ctrl.Snapshot(),
		subs:     make(map[int]chan Snapshot),
	}
}

// Run processes inputs until ctx ends. It stops the progress ticker and closes subscriber channels on return.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.once.Do(func() { started = true })
	if !started {
		return errors.New("session loop already started")
	}

	l.runCtx = ctx

	unsubscribe := func() {}
	if l.library != nil {
		unsubscribe = l.library.Subscribe(l.notifyChanged)
	}

	defer func() {
		unsubscribe()
		l.stopTicker()
		close(l.done)
		l.wg.Wait()
		l.closeSubscribers()
		l.logger.Debug("session loop stopped")
	}()

	events := l.backend.Events()
	l.logger.Debug("session loop started", "policy", l.policy, "interval", l.interval)

	for {
		var tick <-chan time.Time
		if l.ticker != nil {
			tick = l.ticker.C
		}

		select {
		case <-ctx.Done():
			return nil
		case req := <-l.requests:
			req.fn(l)
			l.settle()
			if req.reply != nil {
				req.reply <- l.Snapshot()
			}
		case res := <-l.fetches:
			l.completeFetch(res)
			l.settle()
		case ev, ok := <-events:
			if !ok {
				events = nil
				l.logger.Warn("media backend event stream closed")
				continue
			}
			l.handleEvent(ev)
			l.settle()
		case <-l.changed:
			l.libraryChanged()
			l.settle()
		case <-tick:
			l.poll()
			l.settle()
		}
	}
}

func (l *Loop) notifyChanged() {
	select {
	case l.changed <- struct{}{}:
	default:
	}
}

// settle reconciles the ticker with the play state and publishes a snapshot.
func (l *Loop) settle() {
	playing := l.ctrl.state.IsPlaying
	switch {
	case playing && l.ticker == nil:
		l.ticker = time.NewTicker(l.interval)
		l.logger.Debug("progress polling started")
	case !playing && l.ticker != nil:
		l.stopTicker()
		l.logger.Debug("progress polling stopped")
	}
	l.publish()
}

func (l *Loop) stopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
}

func (l *Loop) publish() {
	snap := l.ctrl.Snapshot()
	snap.Polling = l.ticker != nil

	l.mu.Lock()
	defer l.mu.Unlock()

	l.snap = snap
	for _, ch := range l.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (l *Loop) closeSubscribers() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, ch := range l.subs {
		close(ch)
		delete(l.subs, id)
	}
}

// Snapshot returns the most recently published snapshot.
func (l *Loop) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Subscribe returns a channel that always holds the latest snapshot. Slow readers skip intermediate snapshots.
// The channel is closed when the loop stops or the returned function is called.
func (l *Loop) Subscribe() (<-chan Snapshot, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Snapshot, 1)
	select {
	case <-l.done:
		close(ch)
		return ch, func() {}
	default:
	}

	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	ch <- l.snap

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if c, ok := l.subs[id]; ok {
			close(c)
			delete(l.subs, id)
		}
	}
}

func (l *Loop) enqueue(req request) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.requests <- req:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Send queues intent without waiting for it to be applied.
func (l *Loop) Send(intent Intent) error {
	return l.enqueue(request{fn: func(l *Loop) { intent(l.ctrl) }})
}

// Dispatch applies intent and returns the resulting snapshot.
func (l *Loop) Dispatch(ctx context.Context, intent Intent) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := l.enqueue(request{fn: func(l *Loop) { intent(l.ctrl) }, reply: reply}); err != nil {
		return Snapshot{}, err
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-l.done:
		return Snapshot{}, ErrLoopStopped
	}
}

// Navigate switches the active browse context and derives a new queue from it.
func (l *Loop) Navigate(bc models.BrowseContext) error {
	return l.enqueue(request{fn: func(l *Loop) { l.navigate(bc) }})
}

// Retry re-derives the queue for the active context.
func (l *Loop) Retry() error {
	return l.enqueue(request{fn: func(l *Loop) { l.navigate(l.ctrl.state.Context) }})
}

// SelectTrack applies the click contract for t on the loop goroutine.
func (l *Loop) SelectTrack(t models.Track) error {
	return l.Send(func(c *Controller) { c.SelectTrack(t) })
}

// Next advances to the next track.
func (l *Loop) Next() error {
	return l.Send(func(c *Controller) { c.Advance(models.Next) })
}

// Prev steps back to the previous track.
func (l *Loop) Prev() error {
	return l.Send(func(c *Controller) { c.Advance(models.Prev) })
}

// TogglePlay flips between playing and paused.
func (l *Loop) TogglePlay() error {
	return l.Send(func(c *Controller) { c.TogglePlay() })
}

// Seek jumps to percent of the current track.
func (l *Loop) Seek(percent float64) error {
	return l.Send(func(c *Controller) { c.Seek(percent) })
}

// SetVolume sets the volume, clamped to 0-100.
func (l *Loop) SetVolume(v int) error {
	return l.Send(func(c *Controller) { c.SetVolume(v) })
}

// ToggleShuffle flips shuffle.
func (l *Loop) ToggleShuffle() error {
	return l.Send(func(c *Controller) { c.ToggleShuffle() })
}

// CycleRepeat moves repeat to the next mode.
func (l *Loop) CycleRepeat() error {
	return l.Send(func(c *Controller) { c.CycleRepeat() })
}

// SetExpanded opens or closes the expanded player.
func (l *Loop) SetExpanded(expanded bool) error {
	return l.Send(func(c *Controller) { c.SetExpanded(expanded) })
}

func (l *Loop) navigate(bc models.BrowseContext) {
	l.ctrl.SetContext(bc)
	l.token++
	token := l.token

	switch {
	case bc.IsSearch():
		if l.library != nil {
			if err := l.library.AddSearchTerm(l.runCtx, bc.Query); err != nil {
				l.logger.Warn("failed to record search", "query", bc.Query, "error", err)
			}
		}
	case bc.IsPlaylist():
		var tracks []models.Track
		if l.library != nil {
			if p, ok := l.library.Playlist(bc.PlaylistID); ok {
				tracks = p.Tracks
			}
		}
		l.ctrl.CompleteFetch(tracks)
		return
	case bc.View == models.ViewPlaylist:
		l.ctrl.ClearLoading()
		return
	case bc.View == models.ViewAbout:
		l.ctrl.CompleteFetch(nil)
		return
	}

	l.ctrl.BeginFetch()
	l.logger.Debug("fetching context", "context", bc, "token", token)

	ctx := l.runCtx
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		tracks, err := services.Fetch(ctx, l.catalog, bc)

		select {
		case l.fetches <- fetchResult{token: token, bc: bc, tracks: tracks, err: err}:
		case <-l.done:
		}
	}()
}

func (l *Loop) completeFetch(res fetchResult) {
	if l.policy == LatestRequestWins && res.token != l.token {
		l.logger.Debug("discarding stale fetch", "context", res.bc, "token", res.token, "latest", l.token)
		return
	}

	if res.err != nil {
		l.logger.Warn("failed to load content", "context", res.bc, "error", res.err)
		l.ctrl.FailFetch()
		return
	}

	l.logger.Debug("fetch complete", "context", res.bc, "token", res.token, "tracks", len(res.tracks))
	l.ctrl.CompleteFetch(res.tracks)
}

func (l *Loop) handleEvent(ev media.Event) {
	switch ev.Kind {
	case media.EventReady:
		l.ctrl.OnReady(ev.TrackID)
	case media.EventEnded:
		l.ctrl.OnTrackEnded(ev.TrackID)
	case media.EventStateChanged:
		l.ctrl.OnStateChanged(ev.State)
	case media.EventError:
		l.logger.Warn("media backend error", "track", ev.TrackID, "error", ev.Err)
	}
}

// libraryChanged re-derives a playlist queue and re-resolves the current track. A deleted active playlist returns
// the context to the playlist overview.
func (l *Loop) libraryChanged() {
	bc := l.ctrl.state.Context
	if bc.IsPlaylist() {
		if p, ok := l.library.Playlist(bc.PlaylistID); ok {
			l.ctrl.SetQueue(p.Tracks)
		} else {
			l.logger.Debug("active playlist deleted", "id", bc.PlaylistID)
			l.ctrl.SetContext(models.BrowseContext{View: models.ViewPlaylist})
		}
	}
	l.ctrl.ResolveCurrentTrack()
}

func (l *Loop) poll() {
	if !l.ctrl.state.IsPlaying {
		return
	}

	pos, err := l.backend.Position()
	if err != nil {
		l.logger.Debug("position unavailable", "error", err)
		return
	}
	dur, err := l.backend.Duration()
	if err != nil {
		l.logger.Debug("duration unavailable", "error", err)
		return
	}
	l.ctrl.OnProgress(pos, dur)
}
