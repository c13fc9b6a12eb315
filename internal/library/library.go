package library

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/shared"
)

const (
	KeyPlaylists     = "playlists"
	KeySearchHistory = "searchHistory"

	DefaultPlaylistID   = "favorites"
	DefaultPlaylistName = "Favorites"

	// MaxHistory is the number of search terms retained.
	MaxHistory = 5
)

// Store durably maps keys to JSON-serializable values.
//
// Load reports false when the key has never been saved.
type Store interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, v any) error
}

// Library holds playlists and search history backed by a [Store].
type Library struct {
	mu        sync.RWMutex
	store     Store
	logger    *log.Logger
	newID     func() string
	playlists []models.Playlist
	history   []string

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int
}

// Option configures a [Library].
type Option func(*Library)

// WithIDGenerator overrides the playlist id generator.
func WithIDGenerator(fn func() string) Option {
	return func(l *Library) {
		if fn != nil {
			l.newID = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// DefaultPlaylist returns the permanent default playlist in its initial, empty state.
func DefaultPlaylist() models.Playlist {
	return models.Playlist{
		ID:        DefaultPlaylistID,
		Name:      DefaultPlaylistName,
		Tracks:    []models.Track{},
		IsDefault: true,
	}
}

// Open loads both collections from store.
//
// A missing playlists blob seeds and persists the default playlist. A stored collection without a default
// playlist gets one inserted at the front.
func Open(ctx context.Context, store Store, opts ...Option) (*Library, error) {
	l := &Library{
		store:  store,
		logger: log.Default(),
		newID:  shared.GenerateID,
		subs:   make(map[int]func()),
	}
	for _, opt := range opts {
		opt(l)
	}

	var playlists []models.Playlist
	found, err := store.Load(ctx, KeyPlaylists, &playlists)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", shared.ErrPersistence, KeyPlaylists, err)
	}

	seeded := !found
	playlists, repaired := normalizePlaylists(playlists)
	l.playlists = playlists

	if seeded || repaired {
		l.logger.Info("seeding default playlist", "id", DefaultPlaylistID, "repaired", repaired)
		if err := l.store.Save(ctx, KeyPlaylists, l.playlists); err != nil {
			return nil, fmt.Errorf("%w: save %s: %w", shared.ErrPersistence, KeyPlaylists, err)
		}
	}

	var history []string
	if _, err := store.Load(ctx, KeySearchHistory, &history); err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", shared.ErrPersistence, KeySearchHistory, err)
	}
	l.history = normalizeHistory(history)

	l.logger.Debug("library loaded", "playlists", len(l.playlists), "history", len(l.history))
	return l, nil
}

// normalizePlaylists guarantees a single default playlist and duplicate-free track lists.
func normalizePlaylists(in []models.Playlist) ([]models.Playlist, bool) {
	repaired := false
	out := make([]models.Playlist, 0, len(in)+1)
	hasDefault := false

	for _, p := range in {
		if p.IsDefault {
			if hasDefault {
				p.IsDefault = false
				repaired = true
			}
			hasDefault = true
		}
		deduped := models.DedupeTracks(p.Tracks)
		if len(deduped) != len(p.Tracks) {
			repaired = true
		}
		p.Tracks = deduped
		out = append(out, p)
	}

	if !hasDefault {
		out = append([]models.Playlist{DefaultPlaylist()}, out...)
		repaired = repaired || len(in) > 0
	}
	return out, repaired
}

func normalizeHistory(in []string) []string {
	out := make([]string, 0, MaxHistory)
	for i := len(in) - 1; i >= 0; i-- {
		out = pushTerm(out, in[i])
	}
	return out
}

// pushTerm trims term, drops any case-insensitive duplicate, prepends it and caps the list.
func pushTerm(history []string, term string) []string {
	term = strings.TrimSpace(term)
	if term == "" {
		return history
	}

	out := make([]string, 0, MaxHistory)
	out = append(out, term)
	for _, h := range history {
		if strings.EqualFold(h, term) {
			continue
		}
		out = append(out, h)
	}
	if len(out) > MaxHistory {
		out = out[:MaxHistory]
	}
	return out
}

// Subscribe registers fn to be called after every mutation, whether or not it was persisted.
// The returned function removes the subscription.
func (l *Library) Subscribe(fn func()) func() {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	id := l.nextID
	l.nextID++
	l.subs[id] = fn

	return func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		delete(l.subs, id)
	}
}

func (l *Library) notify() {
	l.subMu.Lock()
	subs := make([]func(), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.subMu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func (l *Library) persist(ctx context.Context, key string, v any) error {
	if err := l.store.Save(ctx, key, v); err != nil {
		l.logger.Error("failed to persist library", "key", key, "error", err)
		return fmt.Errorf("%w: save %s: %w", shared.ErrPersistence, key, err)
	}
	return nil
}

func (l *Library) snapshotPlaylists() []models.Playlist {
	out := make([]models.Playlist, len(l.playlists))
	for i, p := range l.playlists {
		out[i] = p.Clone()
	}
	return out
}

func (l *Library) indexOf(id string) int {
	return slices.IndexFunc(l.playlists, func(p models.Playlist) bool { return p.ID == id })
}

// CreatePlaylist appends a new empty playlist named name.
//
// The name is trimmed; an empty name is rejected with [shared.ErrInvalidInput].
func (l *Library) CreatePlaylist(ctx context.Context, name string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist name is empty", shared.ErrInvalidInput)
	}

	l.mu.Lock()
	p := models.Playlist{ID: l.newID(), Name: name, Tracks: []models.Track{}}
	l.playlists = append(l.playlists, p)
	err := l.persist(ctx, KeyPlaylists, l.snapshotPlaylists())
	l.mu.Unlock()

	l.logger.Debug("playlist created", "id", p.ID, "name", p.Name)
	l.notify()
	return p.Clone(), err
}

// DeletePlaylist removes the playlist with id and reports whether anything was removed.
//
// Unknown ids and the default playlist are ignored.
func (l *Library) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	idx := l.indexOf(id)
	if idx < 0 || l.playlists[idx].IsDefault {
		l.mu.Unlock()
		return false, nil
	}

	l.playlists = slices.Delete(l.playlists, idx, idx+1)
	err := l.persist(ctx, KeyPlaylists, l.snapshotPlaylists())
	l.mu.Unlock()

	l.logger.Debug("playlist deleted", "id", id)
	l.notify()
	return true, err
}

// ToggleTrack adds track to the playlist when absent and removes it when present.
//
// It reports whether the track is in the playlist afterwards. Unknown playlist ids are ignored.
func (l *Library) ToggleTrack(ctx context.Context, playlistID string, track models.Track) (bool, error) {
	l.mu.Lock()
	idx := l.indexOf(playlistID)
	if idx < 0 || track.ID == "" {
		l.mu.Unlock()
		return false, nil
	}

	p := l.playlists[idx].Clone()
	added := false
	if i := p.IndexOf(track.ID); i >= 0 {
		p.Tracks = slices.Delete(p.Tracks, i, i+1)
	} else {
		p.Tracks = append(p.Tracks, track)
		added = true
	}
	l.playlists[idx] = p

	err := l.persist(ctx, KeyPlaylists, l.snapshotPlaylists())
	l.mu.Unlock()

	l.logger.Debug("playlist toggled", "playlist", playlistID, "track", track.ID, "added", added)
	l.notify()
	return added, err
}

// AddSearchTerm records term as the most recent search.
//
// Whitespace-only terms are ignored; an existing case-insensitive match is replaced.
func (l *Library) AddSearchTerm(ctx context.Context, term string) error {
	if strings.TrimSpace(term) == "" {
		return nil
	}

	l.mu.Lock()
	l.history = pushTerm(l.history, term)
	err := l.persist(ctx, KeySearchHistory, slices.Clone(l.history))
	l.mu.Unlock()

	l.notify()
	return err
}

// RemoveSearchTerm removes entries exactly equal to term.
func (l *Library) RemoveSearchTerm(ctx context.Context, term string) error {
	l.mu.Lock()
	if !slices.Contains(l.history, term) {
		l.mu.Unlock()
		return nil
	}

	l.history = slices.DeleteFunc(slices.Clone(l.history), func(h string) bool { return h == term })
	err := l.persist(ctx, KeySearchHistory, slices.Clone(l.history))
	l.mu.Unlock()

	l.notify()
	return err
}

// ClearHistory removes every search term.
func (l *Library) ClearHistory(ctx context.Context) error {
	l.mu.Lock()
	l.history = []string{}
	err := l.persist(ctx, KeySearchHistory, l.history)
	l.mu.Unlock()

	l.notify()
	return err
}

// Playlists returns a copy of every playlist in order.
func (l *Library) Playlists() []models.Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotPlaylists()
}

// Playlist returns a copy of the playlist with id.
func (l *Library) Playlist(id string) (models.Playlist, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.indexOf(id)
	if idx < 0 {
		return models.Playlist{}, false
	}
	return l.playlists[idx].Clone(), true
}

// Default returns a copy of the default playlist.
func (l *Library) Default() models.Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.playlists {
		if p.IsDefault {
			return p.Clone()
		}
	}
	return DefaultPlaylist()
}

// History returns the search terms, most recent first.
func (l *Library) History() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.history)
}

// PlaylistsContaining returns the ids of playlists that hold trackID.
func (l *Library) PlaylistsContaining(trackID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []string
	for _, p := range l.playlists {
		if p.Contains(trackID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// FindTrack scans every playlist in order and returns the first track with id.
func (l *Library) FindTrack(id string) (models.Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.playlists {
		if i := p.IndexOf(id); i >= 0 {
			return p.Tracks[i], true
		}
	}
	return models.Track{}, false
}
