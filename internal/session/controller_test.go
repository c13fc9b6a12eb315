package session

import (
	"slices"
	"testing"

	"github.com/desertthunder/limuzic/internal/media"
	"github.com/desertthunder/limuzic/internal/models"
	tu "github.com/desertthunder/limuzic/internal/testing"
)

type playlistFinder []models.Playlist

func (p playlistFinder) FindTrack(id string) (models.Track, bool) {
	for _, pl := range p {
		if i := pl.IndexOf(id); i >= 0 {
			return pl.Tracks[i], true
		}
	}
	return models.Track{}, false
}

func newTestController(t *testing.T, opts ...ControllerOption) (*Controller, *tu.FakeBackend) {
	t.Helper()
	backend := tu.NewFakeBackend()
	t.Cleanup(func() { backend.Close() })
	return NewController(backend, nil, opts...), backend
}

// playing puts the controller on track id of queue as if it had loaded.
func playing(c *Controller, queue []models.Track, id string) {
	c.SetQueue(queue)
	for _, tr := range queue {
		if tr.ID == id {
			c.SelectTrack(tr)
		}
	}
	c.OnReady(id)
}

func TestSelectTrack(t *testing.T) {
	t.Run("New Track Loads Plays And Expands", func(t *testing.T) {
		c, backend := newTestController(t)
		c.SetQueue(tu.Tracks("a", "b"))

		c.SelectTrack(tu.Track("a", 200))

		s := c.State()
		if s.CurrentTrackID != "a" || !s.IsPlaying || !s.IsExpanded {
			t.Errorf("unexpected state %+v", s)
		}
		if s.Phase != PhaseLoading {
			t.Errorf("expected loading phase, got %s", s.Phase)
		}
		if got := backend.Sent(); !slices.Equal(got, []string{"load a", "play"}) {
			t.Errorf("unexpected commands %v", got)
		}
		if cur, ok := c.Current(); !ok || cur.ID != "a" {
			t.Errorf("expected current a, got %+v %v", cur, ok)
		}
	})

	t.Run("Same Track With Collapsed View Only Expands", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, tu.Tracks("a"), "a")
		c.SetExpanded(false)
		backend.Reset()

		c.SelectTrack(tu.Track("a", 200))

		s := c.State()
		if !s.IsExpanded {
			t.Error("expected expanded view to open")
		}
		if !s.IsPlaying {
			t.Error("expected play state to be unchanged")
		}
		if len(backend.Sent()) != 0 {
			t.Errorf("expected no backend commands, got %v", backend.Sent())
		}
	})

	t.Run("Same Track With Expanded View Toggles", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, tu.Tracks("a"), "a")
		backend.Reset()

		c.SelectTrack(tu.Track("a", 200))
		if s := c.State(); s.IsPlaying || s.Phase != PhasePaused {
			t.Errorf("expected paused, got playing=%v phase=%s", s.IsPlaying, s.Phase)
		}
		if backend.Last() != "pause" {
			t.Errorf("expected pause command, got %v", backend.Sent())
		}

		c.SelectTrack(tu.Track("a", 200))
		if s := c.State(); !s.IsPlaying || s.Phase != PhasePlaying {
			t.Errorf("expected playing, got playing=%v phase=%s", s.IsPlaying, s.Phase)
		}
	})

	t.Run("Twice From Collapsed", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, tu.Tracks("a"), "a")
		c.SetExpanded(false)

		c.SelectTrack(tu.Track("a", 200))
		if s := c.State(); !s.IsExpanded || !s.IsPlaying {
			t.Fatalf("first call should only expand, got %+v", s)
		}
		c.SelectTrack(tu.Track("a", 200))
		if s := c.State(); s.IsPlaying {
			t.Error("second call should toggle play state")
		}
	})

	t.Run("Empty Id Ignored", func(t *testing.T) {
		c, backend := newTestController(t)
		c.SelectTrack(models.Track{})

		if c.State().CurrentTrackID != "" || len(backend.Sent()) != 0 {
			t.Error("expected no change")
		}
	})
}

func TestAdvance(t *testing.T) {
	queue := tu.Tracks("a", "b", "c")

	t.Run("Repeat Off On Last Stops", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, queue, "c")
		backend.Reset()

		c.Advance(models.Next)

		s := c.State()
		if s.IsPlaying {
			t.Error("expected playback to stop")
		}
		if s.CurrentTrackID != "c" {
			t.Errorf("expected current to stay c, got %s", s.CurrentTrackID)
		}
		if s.Phase != PhasePaused {
			t.Errorf("expected paused phase, got %s", s.Phase)
		}
		if backend.Last() != "pause" {
			t.Errorf("expected pause command, got %v", backend.Sent())
		}
	})

	t.Run("Repeat All On Last Wraps", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, queue, "c")
		c.CycleRepeat()

		c.Advance(models.Next)

		if s := c.State(); s.CurrentTrackID != "a" || !s.IsPlaying {
			t.Errorf("expected wrap to a, got %s playing=%v", s.CurrentTrackID, s.IsPlaying)
		}
	})

	t.Run("Steps Forward", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, queue, "a")
		backend.Reset()

		c.Advance(models.Next)

		if got := c.State().CurrentTrackID; got != "b" {
			t.Errorf("expected b, got %s", got)
		}
		if got := backend.Sent(); !slices.Equal(got, []string{"load b", "play"}) {
			t.Errorf("unexpected commands %v", got)
		}
		if c.State().IsExpanded != true {
			t.Error("expected expanded state to be untouched")
		}
	})

	t.Run("Current Not In Queue Starts At First", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, tu.Tracks("x"), "x")
		c.SetQueue(queue)

		c.Advance(models.Next)
		if got := c.State().CurrentTrackID; got != "a" {
			t.Errorf("expected a, got %s", got)
		}
	})

	t.Run("Nothing Selected Starts At First", func(t *testing.T) {
		c, _ := newTestController(t)
		c.SetQueue(queue)

		c.Advance(models.Next)
		if s := c.State(); s.CurrentTrackID != "a" || !s.IsPlaying {
			t.Errorf("expected a playing, got %+v", s)
		}
	})

	t.Run("Empty Queue Is No-op", func(t *testing.T) {
		c, backend := newTestController(t)
		c.Advance(models.Next)
		c.Advance(models.Prev)

		if c.State().CurrentTrackID != "" || len(backend.Sent()) != 0 {
			t.Error("expected no change")
		}
	})

	t.Run("Prev Wraps Ignoring Repeat And Shuffle", func(t *testing.T) {
		c, _ := newTestController(t, WithRandom(func(int) int { return 1 }))
		playing(c, queue, "a")
		c.ToggleShuffle()

		c.Advance(models.Prev)
		if got := c.State().CurrentTrackID; got != "c" {
			t.Errorf("expected c, got %s", got)
		}

		c.Advance(models.Prev)
		if got := c.State().CurrentTrackID; got != "b" {
			t.Errorf("expected b, got %s", got)
		}
	})

	t.Run("Prev Without Current Starts At First", func(t *testing.T) {
		c, _ := newTestController(t)
		c.SetQueue(queue)

		c.Advance(models.Prev)
		if got := c.State().CurrentTrackID; got != "a" {
			t.Errorf("expected a, got %s", got)
		}
	})

	t.Run("Shuffle Uses Random Pick", func(t *testing.T) {
		c, _ := newTestController(t, WithRandom(func(n int) int { return 2 }))
		playing(c, queue, "a")
		c.ToggleShuffle()

		c.Advance(models.Next)
		if got := c.State().CurrentTrackID; got != "c" {
			t.Errorf("expected c, got %s", got)
		}
	})

	t.Run("Shuffle Corrects Immediate Repeat", func(t *testing.T) {
		c, _ := newTestController(t, WithRandom(func(n int) int { return 2 }))
		playing(c, queue, "c")
		c.ToggleShuffle()

		c.Advance(models.Next)
		if got := c.State().CurrentTrackID; got != "a" {
			t.Errorf("expected correction to wrap to a, got %s", got)
		}
	})

	t.Run("Shuffle Ignores Repeat Off On Last", func(t *testing.T) {
		c, _ := newTestController(t, WithRandom(func(n int) int { return 0 }))
		playing(c, queue, "c")
		c.ToggleShuffle()

		c.Advance(models.Next)
		if s := c.State(); s.CurrentTrackID != "a" || !s.IsPlaying {
			t.Errorf("expected shuffle to continue, got %+v", s)
		}
	})

	t.Run("Shuffle Single Track Repeats It", func(t *testing.T) {
		c, backend := newTestController(t, WithRandom(func(n int) int { return 0 }))
		playing(c, tu.Tracks("solo"), "solo")
		c.ToggleShuffle()
		backend.Reset()

		c.Advance(models.Next)

		if got := c.State().CurrentTrackID; got != "solo" {
			t.Errorf("expected solo, got %s", got)
		}
		if got := backend.Sent(); !slices.Equal(got, []string{"seek 0 true", "play"}) {
			t.Errorf("expected restart, got %v", got)
		}
	})

	t.Run("Out Of Range Random Is Wrapped", func(t *testing.T) {
		c, _ := newTestController(t, WithRandom(func(n int) int { return -1 }))
		c.SetQueue(queue)
		c.ToggleShuffle()

		c.Advance(models.Next)
		if got := c.State().CurrentTrackID; got != "c" {
			t.Errorf("expected c, got %s", got)
		}
	})
}

func TestOnTrackEnded(t *testing.T) {
	queue := tu.Tracks("a", "b", "c")

	t.Run("Repeat One Restarts", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, queue, "b")
		c.CycleRepeat()
		c.CycleRepeat()
		c.OnProgress(199, 200)
		backend.Reset()

		c.OnTrackEnded("b")

		s := c.State()
		if s.CurrentTrackID != "b" || !s.IsPlaying || s.Position != 0 {
			t.Errorf("expected b restarted, got %+v", s)
		}
		if s.Phase != PhasePlaying {
			t.Errorf("expected playing phase, got %s", s.Phase)
		}
		if got := backend.Sent(); !slices.Equal(got, []string{"seek 0 true", "play"}) {
			t.Errorf("unexpected commands %v", got)
		}
	})

	t.Run("Otherwise Advances", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, queue, "a")

		c.OnTrackEnded("a")
		if s := c.State(); s.CurrentTrackID != "b" || s.Phase != PhaseLoading {
			t.Errorf("expected b loading, got %s %s", s.CurrentTrackID, s.Phase)
		}
	})

	t.Run("Last Track With Repeat Off Stops", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, queue, "c")

		c.OnTrackEnded("c")
		if s := c.State(); s.IsPlaying || s.CurrentTrackID != "c" || s.Phase != PhasePaused {
			t.Errorf("expected stopped on c, got %+v", s)
		}
	})

	t.Run("Empty Queue Settles To Paused", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, tu.Tracks("a", "b"), "a")
		c.SetQueue(nil)
		backend.Reset()

		c.OnTrackEnded("a")
		s := c.State()
		if s.Phase != PhasePaused || s.IsPlaying || s.CurrentTrackID != "a" {
			t.Errorf("expected paused on a, got phase=%s playing=%t current=%q", s.Phase, s.IsPlaying, s.CurrentTrackID)
		}
		if got := backend.Sent(); !slices.Equal(got, []string{"pause"}) {
			t.Errorf("unexpected commands %v", got)
		}
	})

	t.Run("Stale Event Ignored", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, queue, "b")

		c.OnTrackEnded("a")
		if got := c.State().CurrentTrackID; got != "b" {
			t.Errorf("expected b, got %s", got)
		}
	})
}

func TestSeek(t *testing.T) {
	t.Run("Unknown Duration Is No-op", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, []models.Track{tu.Track("a", 0)}, "a")
		backend.Reset()

		c.Seek(50)
		if len(backend.Sent()) != 0 || c.State().Position != 0 {
			t.Errorf("expected no seek, got %v", backend.Sent())
		}
	})

	t.Run("Optimistic Position", func(t *testing.T) {
		c, backend := newTestController(t)
		playing(c, []models.Track{tu.Track("a", 200)}, "a")
		backend.Reset()

		c.Seek(25)
		if c.State().Position != 50 {
			t.Errorf("expected position 50, got %v", c.State().Position)
		}
		if backend.Last() != "seek 50 true" {
			t.Errorf("expected seek command, got %v", backend.Sent())
		}
	})

	t.Run("Clamps Percent", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, []models.Track{tu.Track("a", 200)}, "a")

		c.Seek(150)
		if c.State().Position != 200 {
			t.Errorf("expected 200, got %v", c.State().Position)
		}
	})
}

func TestTransportSettings(t *testing.T) {
	t.Run("Volume", func(t *testing.T) {
		c, backend := newTestController(t)
		if c.State().Volume != DefaultVolume {
			t.Errorf("expected default volume %d, got %d", DefaultVolume, c.State().Volume)
		}

		c.SetVolume(130)
		if c.State().Volume != 100 || backend.Last() != "volume 100" {
			t.Errorf("expected clamped volume, got %d %v", c.State().Volume, backend.Sent())
		}
		c.SetVolume(-4)
		if c.State().Volume != 0 {
			t.Errorf("expected 0, got %d", c.State().Volume)
		}
	})

	t.Run("Shuffle And Repeat Do Not Touch Backend", func(t *testing.T) {
		c, backend := newTestController(t)
		c.ToggleShuffle()
		modes := []models.RepeatMode{}
		for range 3 {
			c.CycleRepeat()
			modes = append(modes, c.State().Repeat)
		}

		if !c.State().Shuffle {
			t.Error("expected shuffle on")
		}
		if !slices.Equal(modes, []models.RepeatMode{models.RepeatAll, models.RepeatOne, models.RepeatOff}) {
			t.Errorf("unexpected repeat cycle %v", modes)
		}
		if len(backend.Sent()) != 0 {
			t.Errorf("expected no backend commands, got %v", backend.Sent())
		}
	})

	t.Run("Toggle Play Without Track", func(t *testing.T) {
		c, backend := newTestController(t)
		c.TogglePlay()
		if c.State().IsPlaying || len(backend.Sent()) != 0 {
			t.Error("expected no change")
		}
	})

	t.Run("Progress Ignored Without Duration", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, []models.Track{tu.Track("a", 200)}, "a")

		c.OnProgress(30, 0)
		if c.State().Position != 0 {
			t.Errorf("expected position 0, got %v", c.State().Position)
		}
		c.OnProgress(30, 210)
		if s := c.State(); s.Position != 30 || s.Duration != 210 {
			t.Errorf("expected 30/210, got %v/%v", s.Position, s.Duration)
		}
	})
}

func TestReady(t *testing.T) {
	t.Run("Plays And Applies Volume", func(t *testing.T) {
		c, backend := newTestController(t, WithVolume(55))
		c.SetQueue(tu.Tracks("a"))
		c.SelectTrack(tu.Track("a", 200))
		backend.Reset()

		c.OnReady("a")
		if got := backend.Sent(); !slices.Equal(got, []string{"volume 55", "play"}) {
			t.Errorf("unexpected commands %v", got)
		}
		if c.State().Phase != PhasePlaying {
			t.Errorf("expected playing, got %s", c.State().Phase)
		}
	})

	t.Run("Paused While Loading", func(t *testing.T) {
		c, _ := newTestController(t)
		c.SetQueue(tu.Tracks("a"))
		c.SelectTrack(tu.Track("a", 200))
		c.TogglePlay()
		if c.State().Phase != PhaseLoading {
			t.Fatalf("expected loading, got %s", c.State().Phase)
		}

		c.OnReady("a")
		if c.State().Phase != PhasePaused {
			t.Errorf("expected paused, got %s", c.State().Phase)
		}
	})

	t.Run("Stale Ready Ignored", func(t *testing.T) {
		c, _ := newTestController(t)
		c.SetQueue(tu.Tracks("a", "b"))
		c.SelectTrack(tu.Track("b", 200))

		c.OnReady("a")
		if c.State().Phase != PhaseLoading {
			t.Errorf("expected loading, got %s", c.State().Phase)
		}
	})

	t.Run("Playing State Confirms Load", func(t *testing.T) {
		c, _ := newTestController(t)
		c.SetQueue(tu.Tracks("a"))
		c.SelectTrack(tu.Track("a", 200))

		c.OnStateChanged(media.StateBuffering)
		if c.State().Phase != PhaseLoading {
			t.Errorf("expected loading, got %s", c.State().Phase)
		}
		c.OnStateChanged(media.StatePlaying)
		if c.State().Phase != PhasePlaying {
			t.Errorf("expected playing, got %s", c.State().Phase)
		}
	})
}

func TestResolveCurrentTrack(t *testing.T) {
	t.Run("Queue First", func(t *testing.T) {
		fav := models.Playlist{ID: "f", Tracks: []models.Track{{ID: "a", Title: "from playlist"}}}
		backend := tu.NewFakeBackend()
		defer backend.Close()
		c := NewController(backend, playlistFinder{fav})

		queued := tu.Track("a", 100)
		c.SetQueue([]models.Track{queued})
		c.SelectTrack(queued)

		if cur, _ := c.Current(); cur.Title != queued.Title {
			t.Errorf("expected queue entry, got %q", cur.Title)
		}
	})

	t.Run("Falls Back To Playlists", func(t *testing.T) {
		fav := models.Playlist{ID: "f", Tracks: []models.Track{{ID: "a", Title: "from playlist"}}}
		backend := tu.NewFakeBackend()
		defer backend.Close()
		c := NewController(backend, playlistFinder{fav})

		c.SetQueue(tu.Tracks("a"))
		c.SelectTrack(tu.Track("a", 100))
		c.SetQueue(tu.Tracks("x", "y"))

		cur, ok := c.Current()
		if !ok || cur.Title != "from playlist" {
			t.Errorf("expected playlist entry, got %+v %v", cur, ok)
		}
	})

	t.Run("Orphaned Id Is Preserved", func(t *testing.T) {
		c, _ := newTestController(t)
		playing(c, tu.Tracks("a"), "a")

		c.SetQueue(tu.Tracks("x"))

		s := c.State()
		if s.CurrentTrackID != "a" || !s.IsPlaying {
			t.Errorf("expected id and transport preserved, got %+v", s)
		}
		if _, ok := c.Current(); ok {
			t.Error("expected no resolved track")
		}
		if snap := c.Snapshot(); snap.Current != nil {
			t.Error("expected snapshot without current track")
		}
	})
}

func TestUpNext(t *testing.T) {
	tests := []struct {
		name    string
		queue   []string
		current string
		want    string
	}{
		{name: "following track", queue: []string{"a", "b", "c"}, current: "a", want: "b"},
		{name: "last wraps to first", queue: []string{"a", "b", "c"}, current: "c", want: "a"},
		{name: "not queued shows first", queue: []string{"a", "b"}, current: "z", want: "a"},
		{name: "empty queue", queue: nil, current: "a", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(t)
			c.SetQueue(append(tu.Tracks(tt.queue...), tu.Track(tt.current, 1)))
			c.SelectTrack(tu.Track(tt.current, 1))
			c.SetQueue(tu.Tracks(tt.queue...))

			next, ok := c.UpNext()
			if tt.want == "" {
				if ok {
					t.Errorf("expected nothing, got %s", next.ID)
				}
				return
			}
			if next.ID != tt.want {
				t.Errorf("expected %s, got %s", tt.want, next.ID)
			}
		})
	}
}
