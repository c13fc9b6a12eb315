package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/limuzic/internal/library"
	"github.com/desertthunder/limuzic/internal/media"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/shared"
	tu "github.com/desertthunder/limuzic/internal/testing"
)

type loopFixture struct {
	loop    *Loop
	backend *tu.FakeBackend
	catalog *tu.MockCatalog
	lib     *library.Library
	cancel  context.CancelFunc
	errc    chan error
}

func startLoop(t *testing.T, policy FetchPolicy) *loopFixture {
	t.Helper()

	lib, err := library.Open(context.Background(), tu.NewMemoryStore())
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}

	backend := tu.NewFakeBackend()
	catalog := tu.NewMockCatalog()
	catalog.Results["home"] = tu.Tracks("h1", "h2", "h3")
	catalog.Results["trending"] = tu.Tracks("t1", "t2")
	catalog.Results["search:drake"] = tu.Tracks("d1")

	ctrl := NewController(backend, lib)
	loop := NewLoop(ctrl, backend, catalog, lib, LoopConfig{Policy: policy, ProgressInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	f := &loopFixture{loop: loop, backend: backend, catalog: catalog, lib: lib, cancel: cancel, errc: make(chan error, 1)}
	go func() { f.errc <- loop.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-f.errc
		backend.Close()
	})
	return f
}

func waitFor(t *testing.T, l *Loop, desc string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := l.Dispatch(context.Background(), func(*Controller) {})
		if err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; last snapshot %+v", desc, l.Snapshot())
	return Snapshot{}
}

func queueIDs(s Snapshot) []string {
	ids := make([]string, len(s.Queue))
	for i, tr := range s.Queue {
		ids[i] = tr.ID
	}
	return ids
}

func firstID(s Snapshot) string {
	if len(s.Queue) == 0 {
		return ""
	}
	return s.Queue[0].ID
}

func TestLoopNavigate(t *testing.T) {
	t.Run("Catalog Context", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})

		snap := waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 && !s.Loading })
		if snap.Context.View != models.ViewHome || snap.LastError != "" {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("Search Records History", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewArtists, Query: "drake"})

		waitFor(t, f.loop, "search queue", func(s Snapshot) bool { return firstID(s) == "d1" })
		if h := f.lib.History(); len(h) != 1 || h[0] != "drake" {
			t.Errorf("expected search to be recorded, got %v", h)
		}
	})

	t.Run("Failure Keeps Queue", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 })

		f.catalog.SetErr(shared.ErrCatalogUnavailable)
		f.loop.Navigate(models.BrowseContext{View: models.ViewTrending})

		snap := waitFor(t, f.loop, "load error", func(s Snapshot) bool { return s.LastError != "" })
		if snap.LastError != LoadErrorMessage || snap.Loading {
			t.Errorf("unexpected browse status %q loading=%v", snap.LastError, snap.Loading)
		}
		if firstID(snap) != "h1" {
			t.Errorf("expected home queue to survive, got %v", queueIDs(snap))
		}

		f.catalog.SetErr(nil)
		f.loop.Retry()
		waitFor(t, f.loop, "retry", func(s Snapshot) bool { return firstID(s) == "t1" && s.LastError == "" })
	})

	t.Run("About Clears Queue", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 })

		f.loop.Navigate(models.BrowseContext{View: models.ViewAbout})
		waitFor(t, f.loop, "empty queue", func(s Snapshot) bool { return len(s.Queue) == 0 })
	})

	t.Run("Playlist Overview Keeps Queue", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 })

		f.loop.Navigate(models.BrowseContext{View: models.ViewPlaylist})
		snap := waitFor(t, f.loop, "overview", func(s Snapshot) bool { return s.Context.View == models.ViewPlaylist })
		if len(snap.Queue) != 3 {
			t.Errorf("expected queue to be kept, got %v", queueIDs(snap))
		}
	})
}

func TestLoopFetchPolicy(t *testing.T) {
	t.Run("Last Completion Wins", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.catalog.Hold("home")

		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		f.loop.Navigate(models.BrowseContext{View: models.ViewTrending})
		waitFor(t, f.loop, "trending queue", func(s Snapshot) bool { return firstID(s) == "t1" })

		f.catalog.Release("home")
		snap := waitFor(t, f.loop, "stale home queue", func(s Snapshot) bool { return firstID(s) == "h1" })
		if snap.Context.View != models.ViewTrending {
			t.Errorf("expected context to stay trending, got %s", snap.Context)
		}
	})

	t.Run("Latest Request Wins", func(t *testing.T) {
		f := startLoop(t, LatestRequestWins)
		f.catalog.Hold("home")

		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		f.loop.Navigate(models.BrowseContext{View: models.ViewTrending})
		waitFor(t, f.loop, "trending queue", func(s Snapshot) bool { return firstID(s) == "t1" })

		f.catalog.Release("home")
		deadline := time.Now().Add(100 * time.Millisecond)
		for time.Now().Before(deadline) {
			if snap := f.loop.Snapshot(); firstID(snap) != "t1" {
				t.Fatalf("expected stale fetch to be discarded, got %v", queueIDs(snap))
			}
			time.Sleep(5 * time.Millisecond)
		}
	})
}

func TestLoopPlayback(t *testing.T) {
	t.Run("Polling Only While Playing", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 })

		snap, _ := f.loop.Dispatch(context.Background(), func(c *Controller) {})
		if snap.Polling {
			t.Error("expected no polling before playback")
		}

		f.loop.SelectTrack(tu.Track("h1", 200))
		waitFor(t, f.loop, "polling", func(s Snapshot) bool { return s.Polling && s.IsPlaying })

		f.loop.TogglePlay()
		snap = waitFor(t, f.loop, "paused", func(s Snapshot) bool { return !s.IsPlaying })
		if snap.Polling {
			t.Error("expected polling to stop on pause")
		}
	})

	t.Run("Progress Samples", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.backend.SetProgress(12, 180)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 })

		f.loop.SelectTrack(tu.Track("h1", 200))
		snap := waitFor(t, f.loop, "progress", func(s Snapshot) bool { return s.Position == 12 })
		if snap.Duration != 180 {
			t.Errorf("expected reported duration 180, got %v", snap.Duration)
		}
	})

	t.Run("Backend Events", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.loop.Navigate(models.BrowseContext{View: models.ViewHome})
		waitFor(t, f.loop, "home queue", func(s Snapshot) bool { return len(s.Queue) == 3 })

		f.loop.SelectTrack(tu.Track("h1", 200))
		f.backend.Emit(media.Event{Kind: media.EventReady, TrackID: "h1"})
		waitFor(t, f.loop, "playing", func(s Snapshot) bool { return s.Phase == PhasePlaying })

		f.backend.Emit(media.Event{Kind: media.EventEnded, TrackID: "h1"})
		snap := waitFor(t, f.loop, "advance", func(s Snapshot) bool { return s.CurrentTrackID == "h2" })
		if snap.Current == nil || snap.Current.ID != "h2" {
			t.Errorf("expected resolved h2, got %+v", snap.Current)
		}
		if snap.UpNext == nil || snap.UpNext.ID != "h3" {
			t.Errorf("expected h3 up next, got %+v", snap.UpNext)
		}
	})

	t.Run("Dispatch Applies Intent", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)

		snap, err := f.loop.Dispatch(context.Background(), func(c *Controller) { c.SetVolume(35) })
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snap.Volume != 35 {
			t.Errorf("expected volume 35, got %d", snap.Volume)
		}
	})
}

func TestLoopLibrary(t *testing.T) {
	ctx := context.Background()

	t.Run("Playlist Queue Follows Library", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		f.lib.ToggleTrack(ctx, library.DefaultPlaylistID, tu.Track("p1", 100))

		f.loop.Navigate(models.BrowseContext{View: models.ViewPlaylist, PlaylistID: library.DefaultPlaylistID})
		waitFor(t, f.loop, "playlist queue", func(s Snapshot) bool { return len(s.Queue) == 1 })

		f.lib.ToggleTrack(ctx, library.DefaultPlaylistID, tu.Track("p2", 100))
		waitFor(t, f.loop, "updated queue", func(s Snapshot) bool { return len(s.Queue) == 2 })
	})

	t.Run("Deleted Active Playlist Returns To Overview", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		p, _ := f.lib.CreatePlaylist(ctx, "Temp")

		f.loop.Navigate(models.BrowseContext{View: models.ViewPlaylist, PlaylistID: p.ID})
		waitFor(t, f.loop, "playlist context", func(s Snapshot) bool { return s.Context.PlaylistID == p.ID })

		f.lib.DeletePlaylist(ctx, p.ID)
		snap := waitFor(t, f.loop, "overview", func(s Snapshot) bool { return s.Context.PlaylistID == "" })
		if snap.Context.View != models.ViewPlaylist {
			t.Errorf("expected playlist overview, got %s", snap.Context)
		}
	})

	t.Run("Orphaned Track Keeps Playing", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		track := tu.Track("p1", 100)
		f.lib.ToggleTrack(ctx, library.DefaultPlaylistID, track)

		f.loop.Navigate(models.BrowseContext{View: models.ViewPlaylist, PlaylistID: library.DefaultPlaylistID})
		waitFor(t, f.loop, "playlist queue", func(s Snapshot) bool { return len(s.Queue) == 1 })
		f.loop.SelectTrack(track)
		waitFor(t, f.loop, "playing", func(s Snapshot) bool { return s.Current != nil && s.IsPlaying })

		f.lib.ToggleTrack(ctx, library.DefaultPlaylistID, track)
		snap := waitFor(t, f.loop, "orphaned", func(s Snapshot) bool { return s.Current == nil })
		if snap.CurrentTrackID != "p1" || !snap.IsPlaying {
			t.Errorf("expected id and transport preserved, got %+v", snap.State)
		}
	})
}

func TestLoopLifecycle(t *testing.T) {
	t.Run("Subscribers Receive Snapshots", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		ch, unsubscribe := f.loop.Subscribe()
		defer unsubscribe()

		<-ch
		f.loop.SetVolume(10)

		timeout := time.After(2 * time.Second)
		for {
			select {
			case snap := <-ch:
				if snap.Volume == 10 {
					return
				}
			case <-timeout:
				t.Fatal("timed out waiting for snapshot")
			}
		}
	})

	t.Run("Stop Closes Subscribers", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		ch, _ := f.loop.Subscribe()

		f.cancel()
		if err := <-f.errc; err != nil {
			t.Errorf("expected clean stop, got %v", err)
		}
		f.errc <- nil

		for range ch {
		}
		if err := f.loop.Next(); !errors.Is(err, ErrLoopStopped) {
			t.Errorf("expected ErrLoopStopped, got %v", err)
		}
	})

	t.Run("Run Twice", func(t *testing.T) {
		f := startLoop(t, LastCompletionWins)
		if _, err := f.loop.Dispatch(context.Background(), func(*Controller) {}); err != nil {
			t.Fatalf("expected running loop, got %v", err)
		}
		if err := f.loop.Run(context.Background()); err == nil {
			t.Error("expected second run to fail")
		}
	})
}
