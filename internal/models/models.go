// package models defines the data model for the limuzic player
package models

import (
	"fmt"
	"strings"
)

// Track represents a playable item normalized from a catalog result.
//
// Identity is ID: two tracks with the same ID are the same track regardless of other fields.
type Track struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Album           string  `json:"album"`
	CoverURL        string  `json:"coverUrl"`
	DurationDisplay string  `json:"duration"`
	DurationSeconds float64 `json:"durationSec"`
}

// Same reports whether t and other identify the same track.
func (t Track) Same(other Track) bool {
	return t.ID == other.ID
}

// WatchURL returns the public watch page for the track.
func (t Track) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + t.ID
}

// Playlist represents a user playlist. Tracks never contain two entries with the same ID.
type Playlist struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tracks    []Track `json:"songs"`
	IsDefault bool    `json:"isDefault,omitempty"`
}

// IndexOf returns the position of the track with the given id, or -1.
func (p Playlist) IndexOf(trackID string) int {
	for i, t := range p.Tracks {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// Contains reports whether the playlist holds a track with the given id.
func (p Playlist) Contains(trackID string) bool {
	return p.IndexOf(trackID) >= 0
}

// Len returns the number of tracks.
func (p Playlist) Len() int {
	return len(p.Tracks)
}

// Clone returns a deep copy so callers cannot mutate library-owned slices.
func (p Playlist) Clone() Playlist {
	out := p
	out.Tracks = make([]Track, len(p.Tracks))
	copy(out.Tracks, p.Tracks)
	return out
}

// RepeatMode is the repeat policy applied when a track ends or the queue is exhausted.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return ""
	}
}

// Next cycles off → all → one → off.
func (r RepeatMode) Next() RepeatMode {
	switch r {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses "off", "all" or "one" (case-insensitive).
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (r RepeatMode) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (r *RepeatMode) UnmarshalText(b []byte) error {
	mode, err := ParseRepeatMode(string(b))
	if err != nil {
		return err
	}
	*r = mode
	return nil
}

// Direction selects next or previous navigation through the queue.
type Direction int

const (
	Next Direction = iota
	Prev
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// BrowseView enumerates the browse contexts a queue can be derived from.
type BrowseView string

const (
	ViewHome     BrowseView = "home"
	ViewArtists  BrowseView = "artists"
	ViewTrending BrowseView = "trending"
	ViewPlaylist BrowseView = "playlist"
	ViewAbout    BrowseView = "about"
)

// ParseBrowseView validates a view name.
func ParseBrowseView(s string) (BrowseView, error) {
	switch v := BrowseView(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewHome, ViewArtists, ViewTrending, ViewPlaylist, ViewAbout:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// BrowseContext identifies the active browse/search/playlist context.
//
// A non-empty Query overrides View; PlaylistID only matters for [ViewPlaylist].
type BrowseContext struct {
	View       BrowseView `json:"view"`
	Query      string     `json:"query,omitempty"`
	PlaylistID string     `json:"playlistId,omitempty"`
}

// IsSearch reports whether the context is a search.
func (c BrowseContext) IsSearch() bool {
	return strings.TrimSpace(c.Query) != ""
}

// IsPlaylist reports whether the context opens a specific playlist as the queue.
func (c BrowseContext) IsPlaylist() bool {
	return !c.IsSearch() && c.View == ViewPlaylist && c.PlaylistID != ""
}

func (c BrowseContext) String() string {
	switch {
	case c.IsSearch():
		return fmt.Sprintf("search:%s", c.Query)
	case c.IsPlaylist():
		return fmt.Sprintf("playlist:%s", c.PlaylistID)
	case c.View == "":
		return string(ViewHome)
	default:
		return string(c.View)
	}
}

// DedupeTracks returns tracks with duplicate ids removed, keeping the first occurrence in order.
func DedupeTracks(tracks []Track) []Track {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
