package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/shared"
)

// Factory starts a backend. It may fail while the engine is not installed or not yet listening.
type Factory func(ctx context.Context) (Backend, error)

// Deferred forwards commands to a backend that becomes available later.
//
// Until then Load and SetVolume are remembered (latest wins) and replayed on attach; other commands fail with
// [shared.ErrBackendUnavailable].
type Deferred struct {
	mu            sync.Mutex
	inner         Backend
	pendingLoad   string
	pendingVolume *int
	events        chan Event
	done          chan struct{}
	wg            sync.WaitGroup
	logger        *log.Logger
	closed        bool
}

// NewDeferred creates an empty Deferred backend.
func NewDeferred(logger *log.Logger) *Deferred {
	if logger == nil {
		logger = log.Default()
	}
	return &Deferred{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start calls factory every interval until it succeeds, ctx ends, or the Deferred is closed.
func (d *Deferred) Start(ctx context.Context, factory Factory, interval time.Duration) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			b, err := factory(ctx)
			if err == nil {
				if err := d.Attach(b); err != nil {
					d.logger.Warn("backend attach failed", "error", err)
					b.Close()
				}
				return
			}
			d.logger.Debug("backend not available yet", "error", err)

			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Attach installs b and replays the pending load and volume.
func (d *Deferred) Attach(b Backend) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return shared.ErrBackendClosed
	}
	if d.inner != nil {
		return fmt.Errorf("%w: backend already attached", shared.ErrInvalidInput)
	}
	d.inner = b

	d.wg.Add(1)
	go d.forward(b.Events())

	if d.pendingVolume != nil {
		if err := b.SetVolume(*d.pendingVolume); err != nil {
			d.logger.Warn("replaying volume failed", "error", err)
		}
		d.pendingVolume = nil
	}
	if d.pendingLoad != "" {
		if err := b.Load(d.pendingLoad); err != nil {
			d.logger.Warn("replaying load failed", "track", d.pendingLoad, "error", err)
		}
		d.pendingLoad = ""
	}

	d.logger.Info("media backend attached")
	return nil
}

func (d *Deferred) forward(in <-chan Event) {
	defer d.wg.Done()
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			select {
			case d.events <- ev:
			case <-d.done:
				return
			}
		case <-d.done:
			return
		}
	}
}

// Available reports whether a backend has been attached.
func (d *Deferred) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner != nil
}

func (d *Deferred) backend() (Backend, error) {
	if d.closed {
		return nil, shared.ErrBackendClosed
	}
	if d.inner == nil {
		return nil, shared.ErrBackendUnavailable
	}
	return d.inner, nil
}

// Events implements [Backend].
func (d *Deferred) Events() <-chan Event {
	return d.events
}

// Load forwards or remembers trackID.
func (d *Deferred) Load(trackID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.backend()
	if errors.Is(err, shared.ErrBackendUnavailable) {
		d.pendingLoad = trackID
		return nil
	}
	if err != nil {
		return err
	}
	return b.Load(trackID)
}

// SetVolume forwards or remembers volume.
func (d *Deferred) SetVolume(volume int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.backend()
	if errors.Is(err, shared.ErrBackendUnavailable) {
		v := ClampVolume(volume)
		d.pendingVolume = &v
		return nil
	}
	if err != nil {
		return err
	}
	return b.SetVolume(volume)
}

// Play implements [Backend].
func (d *Deferred) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.backend()
	if err != nil {
		return err
	}
	return b.Play()
}

// Pause implements [Backend].
func (d *Deferred) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.backend()
	if err != nil {
		return err
	}
	return b.Pause()
}

// SeekTo implements [Backend].
func (d *Deferred) SeekTo(seconds float64, allowSeekAhead bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.backend()
	if err != nil {
		return err
	}
	return b.SeekTo(seconds, allowSeekAhead)
}

// Position implements [Backend].
func (d *Deferred) Position() (float64, error) {
	d.mu.Lock()
	b, err := d.backend()
	d.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return b.Position()
}

// Duration implements [Backend].
func (d *Deferred) Duration() (float64, error) {
	d.mu.Lock()
	b, err := d.backend()
	d.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return b.Duration()
}

// Close stops the retry loop, closes the attached backend and the event channel.
func (d *Deferred) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	inner := d.inner
	close(d.done)
	d.mu.Unlock()

	var err error
	if inner != nil {
		err = inner.Close()
	}
	d.wg.Wait()
	close(d.events)
	return err
}
