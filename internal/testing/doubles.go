package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/limuzic/internal/media"
	"github.com/desertthunder/limuzic/internal/models"
)

// MemoryStore is an in-memory key/JSON store. Values round-trip through encoding/json like the SQLite store.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	Saves   map[string]int
	SaveErr error
	LoadErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), Saves: make(map[string]int)}
}

func (m *MemoryStore) Load(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return false, m.LoadErr
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *MemoryStore) Save(_ context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Saves[key]++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

// Put stores a raw JSON blob.
func (m *MemoryStore) Put(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(raw)
}

// Raw returns the stored blob for key.
func (m *MemoryStore) Raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}

// SaveCount returns how many times key was saved.
func (m *MemoryStore) SaveCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Saves[key]
}

// MockCatalog serves canned results per browse view. Set Block to hold responses until released.
type MockCatalog struct {
	mu      sync.Mutex
	Results map[string][]models.Track
	Err     error
	Calls   []string
	gates   map[string]chan struct{}
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Results: make(map[string][]models.Track), gates: make(map[string]chan struct{})}
}

// Hold makes the next calls for key block until Release(key).
func (m *MockCatalog) Hold(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates[key] = make(chan struct{})
}

// Release unblocks calls waiting on key.
func (m *MockCatalog) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.gates[key]; ok {
		close(ch)
		delete(m.gates, key)
	}
}

// SetErr makes subsequent calls fail with err.
func (m *MockCatalog) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// CallCount returns the number of calls made.
func (m *MockCatalog) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockCatalog) serve(ctx context.Context, key string) ([]models.Track, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, key)
	gate := m.gates[key]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.Track(nil), m.Results[key]...), nil
}

func (m *MockCatalog) FetchHome(ctx context.Context) ([]models.Track, error) {
	return m.serve(ctx, "home")
}

func (m *MockCatalog) FetchArtists(ctx context.Context) ([]models.Track, error) {
	return m.serve(ctx, "artists")
}

func (m *MockCatalog) FetchTrending(ctx context.Context) ([]models.Track, error) {
	return m.serve(ctx, "trending")
}

func (m *MockCatalog) FetchSearch(ctx context.Context, query string) ([]models.Track, error) {
	return m.serve(ctx, "search:"+strings.TrimSpace(query))
}

// FakeBackend records every command and lets tests inject events.
type FakeBackend struct {
	mu       sync.Mutex
	Commands []string
	events   chan media.Event
	Pos      float64
	Dur      float64
	Volume   int
	LoadErr  error
	closed   bool
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{events: make(chan media.Event, 64)}
}

func (f *FakeBackend) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, fmt.Sprintf(format, args...))
}

// Sent returns a copy of the recorded commands.
func (f *FakeBackend) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Commands...)
}

// Last returns the most recent command or "".
func (f *FakeBackend) Last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Commands) == 0 {
		return ""
	}
	return f.Commands[len(f.Commands)-1]
}

// Reset clears the recorded commands.
func (f *FakeBackend) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = nil
}

// SetProgress sets the values returned by Position and Duration.
func (f *FakeBackend) SetProgress(pos, dur float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pos, f.Dur = pos, dur
}

// Emit pushes an event to subscribers.
func (f *FakeBackend) Emit(ev media.Event) {
	f.events <- ev
}

func (f *FakeBackend) Load(trackID string) error {
	f.record("load %s", trackID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LoadErr
}

func (f *FakeBackend) Play() error {
	f.record("play")
	return nil
}

func (f *FakeBackend) Pause() error {
	f.record("pause")
	return nil
}

func (f *FakeBackend) SeekTo(seconds float64, allowSeekAhead bool) error {
	f.record("seek %g %t", seconds, allowSeekAhead)
	return nil
}

func (f *FakeBackend) SetVolume(volume int) error {
	f.record("volume %d", volume)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Volume = volume
	return nil
}

func (f *FakeBackend) Position() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pos, nil
}

func (f *FakeBackend) Duration() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Dur, nil
}

func (f *FakeBackend) Events() <-chan media.Event {
	return f.events
}

func (f *FakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// Track builds a test track with a duration in seconds.
func Track(id string, seconds float64) models.Track {
	return models.Track{
		ID:              id,
		Title:           "Artist - " + strings.ToUpper(id),
		Artist:          "Artist",
		Album:           "YouTube",
		DurationDisplay: fmt.Sprintf("%d:%02d", int(seconds)/60, int(seconds)%60),
		DurationSeconds: seconds,
	}
}

// Tracks builds one test track per id, each 200 seconds long.
func Tracks(ids ...string) []models.Track {
	out := make([]models.Track, len(ids))
	for i, id := range ids {
		out[i] = Track(id, 200)
	}
	return out
}
