package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/library"
	"github.com/desertthunder/limuzic/internal/media"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/server"
	"github.com/desertthunder/limuzic/internal/session"
	"github.com/desertthunder/limuzic/internal/shared"
	"github.com/urfave/cli/v3"
)

const mpvRetryInterval = 2 * time.Second

// player bundles a running session with the pieces that must be released with it.
type player struct {
	loop    *session.Loop
	backend media.Backend
	cancel  context.CancelFunc
	done    chan error
}

// Stop ends the session loop and closes the backend.
func (p *player) Stop() error {
	p.cancel()
	err := <-p.done
	if cerr := p.backend.Close(); cerr != nil && !errors.Is(cerr, shared.ErrBackendClosed) {
		err = errors.Join(err, cerr)
	}
	return err
}

// newBackend builds the configured media backend.
//
// The mpv backend is started in the background and commands issued before it is ready are replayed once it attaches.
func (r *Runner) newBackend(ctx context.Context, simulate bool, lookup media.DurationFunc, logger *log.Logger) media.Backend {
	if simulate || r.config.Player.Backend != shared.BackendMPV {
		return media.NewClock(lookup, media.WithClockLogger(shared.WithLogger(logger, "backend", shared.BackendClock)))
	}

	mpvLogger := shared.WithLogger(logger, "backend", shared.BackendMPV)
	deferred := media.NewDeferred(mpvLogger)
	deferred.Start(ctx, func(ctx context.Context) (media.Backend, error) {
		return media.StartMPV(ctx, media.MPVConfig{Path: r.config.Player.MPVPath, Logger: mpvLogger})
	}, mpvRetryInterval)
	return deferred
}

// startPlayer wires the backend, controller and loop for lib and runs the loop until Stop is called.
func (r *Runner) startPlayer(ctx context.Context, lib *library.Library, simulate bool) *player {
	ctx, cancel := context.WithCancel(ctx)
	logger := shared.WithLogger(r.logger, "component", "session")

	var loop *session.Loop
	lookup := func(id string) float64 {
		if loop != nil {
			for _, t := range loop.Snapshot().Queue {
				if t.ID == id {
					return t.DurationSeconds
				}
			}
		}
		if t, ok := lib.FindTrack(id); ok {
			return t.DurationSeconds
		}
		return 0
	}

	backend := r.newBackend(ctx, simulate, lookup, logger)
	ctrl := session.NewController(backend, lib,
		session.WithVolume(r.config.Player.Volume), session.WithLogger(logger))

	policy := session.LastCompletionWins
	if r.config.Session.DiscardStaleFetches {
		policy = session.LatestRequestWins
	}
	loop = session.NewLoop(ctrl, backend, r.catalog, lib, session.LoopConfig{
		Policy:           policy,
		ProgressInterval: r.config.Player.ProgressInterval(),
		Logger:           logger,
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	return &player{loop: loop, backend: backend, cancel: cancel, done: done}
}

func browseContextFromFlags(cmd *cli.Command) (models.BrowseContext, error) {
	if q := strings.TrimSpace(cmd.String("query")); q != "" {
		return models.BrowseContext{View: models.ViewHome, Query: q}, nil
	}
	if id := cmd.String("playlist"); id != "" {
		return models.BrowseContext{View: models.ViewPlaylist, PlaylistID: id}, nil
	}

	view, err := models.ParseBrowseView(cmd.String("view"))
	if err != nil {
		return models.BrowseContext{}, fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
	}
	if view == models.ViewPlaylist {
		return models.BrowseContext{}, fmt.Errorf("%w: --view playlist requires --playlist", shared.ErrMissingArgument)
	}
	return models.BrowseContext{View: view}, nil
}

// awaitQueue blocks until the queue for bc has been derived. snaps must not hold a snapshot from before the
// navigation.
func awaitQueue(ctx context.Context, snaps <-chan session.Snapshot, bc models.BrowseContext) (session.Snapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return session.Snapshot{}, ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return session.Snapshot{}, session.ErrLoopStopped
			}
			if snap.Context != bc || snap.Loading {
				continue
			}
			if snap.LastError != "" {
				return snap, fmt.Errorf("%w: %s", shared.ErrCatalogUnavailable, snap.LastError)
			}
			return snap, nil
		}
	}
}

// Play derives a queue from a feed, search or playlist and plays it headlessly.
//
// Returns when the queue is exhausted or ctx is cancelled.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	bc, err := browseContextFromFlags(cmd)
	if err != nil {
		return err
	}
	repeat, err := models.ParseRepeatMode(cmd.String("repeat"))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
	}

	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}
	if bc.IsPlaylist() {
		if _, ok := lib.Playlist(bc.PlaylistID); !ok {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, bc.PlaylistID)
		}
	}

	p := r.startPlayer(ctx, lib, cmd.Bool("simulate"))
	defer p.Stop()

	snaps, unsubscribe := p.loop.Subscribe()
	defer unsubscribe()
	<-snaps

	if err := p.loop.Navigate(bc); err != nil {
		return err
	}
	snap, err := awaitQueue(ctx, snaps, bc)
	if err != nil {
		return err
	}
	if len(snap.Queue) == 0 {
		return r.writePlain("Nothing to play in %s\n", bc)
	}

	start := snap.Queue[0]
	if id := cmd.String("track"); id != "" {
		i := models.Playlist{Tracks: snap.Queue}.IndexOf(id)
		if i < 0 {
			return fmt.Errorf("%w: %s is not in %s", shared.ErrTrackNotFound, id, bc)
		}
		start = snap.Queue[i]
	}

	shuffle := cmd.Bool("shuffle")
	if _, err := p.loop.Dispatch(ctx, func(c *session.Controller) {
		if c.State().Shuffle != shuffle {
			c.ToggleShuffle()
		}
		for range 3 {
			if c.State().Repeat == repeat {
				break
			}
			c.CycleRepeat()
		}
		c.SelectTrack(start)
	}); err != nil {
		return err
	}

	r.writePlain("Playing %s (%d tracks, shuffle %t, repeat %s)\n", bc, len(snap.Queue), shuffle, repeat)
	return r.follow(ctx, snaps)
}

// follow prints each new track until playback stops.
func (r *Runner) follow(ctx context.Context, snaps <-chan session.Snapshot) error {
	var current string
	started := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.CurrentTrackID != "" && snap.CurrentTrackID != current {
				current = snap.CurrentTrackID
				if snap.Current != nil {
					r.writePlain("▶ %s - %s [%s]\n", snap.Current.Artist, snap.Current.Title, snap.Current.DurationDisplay)
				} else {
					r.writePlain("▶ Unknown track (%s)\n", current)
				}
			}
			switch snap.Phase {
			case session.PhasePlaying:
				started = true
			case session.PhasePaused, session.PhaseIdle:
				if started {
					r.writePlain("■ Queue finished\n")
					return nil
				}
			}
		}
	}
}

// Serve runs a playback session controlled through the HTTP API until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	p := r.startPlayer(ctx, lib, cmd.Bool("simulate"))
	defer p.Stop()

	if err := p.loop.Navigate(models.BrowseContext{View: models.ViewHome}); err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	handler := server.NewSessionHandler(p.loop, lib, logger)
	return server.New(cfg.Addr(), server.NewRouter(handler), logger).Run(ctx)
}

// Open opens the watch page of a track in the default browser.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("track"))
	if id == "" {
		return fmt.Errorf("%w: track", shared.ErrMissingArgument)
	}

	url := models.Track{ID: id}.WatchURL()
	r.logger.Info("opening", "url", url)
	if err := shared.OpenBrowser(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return r.writePlain("%s\n", url)
}
