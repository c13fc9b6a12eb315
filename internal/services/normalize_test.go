package services

import (
	"strings"
	"testing"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{name: "minutes and seconds", raw: "3:45", want: 225},
		{name: "hours minutes seconds", raw: "1:02:03", want: 3723},
		{name: "zero", raw: "0:00", want: 0},
		{name: "surrounding whitespace", raw: " 4:05 ", want: 245},
		{name: "empty", raw: "", want: 0},
		{name: "single component", raw: "45", want: 0},
		{name: "too many components", raw: "1:2:3:4", want: 0},
		{name: "non numeric", raw: "ab:cd", want: 0},
		{name: "negative", raw: "-1:30", want: 0},
		{name: "live marker", raw: "LIVE", want: 0},
		{name: "overflowing minutes", raw: "153722867280912931:00", want: 0},
		{name: "overflowing hours", raw: "2562047788015216:00:00", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.raw); got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestArtistFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "Drake - Hotline Bling", want: "Drake"},
		{title: "A-ha - Take On Me", want: "A"},
		{title: "No Separator", want: "No Separator"},
		{title: " - Untitled", want: UnknownArtist},
		{title: "", want: UnknownArtist},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := ArtistFromTitle(tt.title); got != tt.want {
				t.Errorf("ArtistFromTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestNormalizeResult(t *testing.T) {
	t.Run("Full Record", func(t *testing.T) {
		track := NormalizeResult(RawResult{
			ID:          RawID{VideoID: "abc"},
			Title:       "Artist - Song",
			DurationRaw: "3:45",
			Snippet: RawSnippet{Thumbnails: RawThumbnails{
				URL:  "http://img/default.jpg",
				High: &RawThumbnail{URL: "http://img/high.jpg"},
			}},
		})

		if track.ID != "abc" {
			t.Errorf("expected id abc, got %s", track.ID)
		}
		if track.Artist != "Artist" {
			t.Errorf("expected artist 'Artist', got %q", track.Artist)
		}
		if track.Album != DefaultAlbum {
			t.Errorf("expected album %q, got %q", DefaultAlbum, track.Album)
		}
		if track.CoverURL != "http://img/high.jpg" {
			t.Errorf("expected high resolution cover, got %s", track.CoverURL)
		}
		if track.DurationDisplay != "3:45" || track.DurationSeconds != 225 {
			t.Errorf("unexpected duration %q / %v", track.DurationDisplay, track.DurationSeconds)
		}
	})

	t.Run("Cover Falls Back To Default", func(t *testing.T) {
		track := NormalizeResult(RawResult{
			ID:      RawID{VideoID: "abc"},
			Snippet: RawSnippet{Thumbnails: RawThumbnails{URL: "http://img/default.jpg"}},
		})
		if track.CoverURL != "http://img/default.jpg" {
			t.Errorf("expected default cover, got %s", track.CoverURL)
		}

		track = NormalizeResult(RawResult{
			ID: RawID{VideoID: "abc"},
			Snippet: RawSnippet{Thumbnails: RawThumbnails{
				URL:  "http://img/default.jpg",
				High: &RawThumbnail{URL: ""},
			}},
		})
		if track.CoverURL != "http://img/default.jpg" {
			t.Errorf("expected default cover when high is empty, got %s", track.CoverURL)
		}
	})

	t.Run("Missing Duration", func(t *testing.T) {
		track := NormalizeResult(RawResult{ID: RawID{VideoID: "abc"}, Title: "x"})
		if track.DurationDisplay != DefaultDuration {
			t.Errorf("expected %q, got %q", DefaultDuration, track.DurationDisplay)
		}
		if track.DurationSeconds != 0 {
			t.Errorf("expected 0 seconds, got %v", track.DurationSeconds)
		}
	})
}

func TestNormalizeResults(t *testing.T) {
	raw := []RawResult{
		{ID: RawID{VideoID: "a"}, Title: "First - A"},
		{ID: RawID{VideoID: ""}, Title: "No Id"},
		{ID: RawID{VideoID: "b"}, Title: "Second - B"},
		{ID: RawID{VideoID: "a"}, Title: "Duplicate - A"},
	}

	tracks := NormalizeResults(raw)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].ID != "a" || tracks[0].Title != "First - A" {
		t.Errorf("expected first occurrence of a, got %+v", tracks[0])
	}
	if tracks[1].ID != "b" {
		t.Errorf("expected b second, got %s", tracks[1].ID)
	}

	if got := NormalizeResults(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestTruncateQuery(t *testing.T) {
	t.Run("Trims", func(t *testing.T) {
		if got := TruncateQuery("  drake  "); got != "drake" {
			t.Errorf("expected 'drake', got %q", got)
		}
	})

	t.Run("Limits Length", func(t *testing.T) {
		got := TruncateQuery(strings.Repeat("a", 400))
		if len(got) != MaxQueryLength {
			t.Errorf("expected %d characters, got %d", MaxQueryLength, len(got))
		}
	})

	t.Run("Counts Characters Not Bytes", func(t *testing.T) {
		got := TruncateQuery(strings.Repeat("é", 301))
		if n := len([]rune(got)); n != MaxQueryLength {
			t.Errorf("expected %d runes, got %d", MaxQueryLength, n)
		}
	})
}
