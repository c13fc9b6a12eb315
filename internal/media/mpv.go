package media

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/shared"
)

const (
	pauseObserverID = 1
	mpvReplyTimeout = 2 * time.Second
)

// MPVConfig configures [StartMPV].
type MPVConfig struct {
	Path       string
	SocketPath string
	Logger     *log.Logger
}

// MPV drives an mpv process through its JSON IPC socket.
type MPV struct {
	conn   net.Conn
	cmd    *exec.Cmd
	logger *log.Logger
	events chan Event

	writeMu sync.Mutex
	mu      sync.Mutex
	nextID  int
	pending map[int]chan mpvReply
	trackID string
	closed  bool
	done    chan struct{}
}

type mpvCommand struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

type mpvReply struct {
	RequestID int             `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// mpvMessage is either a reply (request_id set, no event) or an event.
type mpvMessage struct {
	RequestID int             `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Reason    string          `json:"reason"`
}

// DefaultSocketPath returns a per-process socket path in the temp directory.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("limuzic-mpv-%d.sock", os.Getpid()))
}

// StartMPV launches mpv in idle mode and connects to its IPC socket.
func StartMPV(ctx context.Context, cfg MPVConfig) (*MPV, error) {
	if cfg.Path == "" {
		cfg.Path = "mpv"
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath()
	}

	bin, err := exec.LookPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrBackendUnavailable, err)
	}

	_ = os.Remove(cfg.SocketPath)
	cmd := exec.Command(bin,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+cfg.SocketPath,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start mpv: %w", shared.ErrBackendUnavailable, err)
	}

	conn, err := dialSocket(ctx, cfg.SocketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	m, err := NewMPVConn(conn, cfg.Logger)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	m.cmd = cmd
	return m, nil
}

func dialSocket(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: mpv socket %s: %w", shared.ErrBackendUnavailable, path, err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// NewMPVConn speaks the mpv IPC protocol over an established connection and subscribes to pause changes.
func NewMPVConn(conn net.Conn, logger *log.Logger) (*MPV, error) {
	if logger == nil {
		logger = log.Default()
	}
	m := &MPV{
		conn:    conn,
		logger:  logger,
		events:  make(chan Event, eventBuffer),
		pending: make(map[int]chan mpvReply),
		done:    make(chan struct{}),
	}
	go m.readLoop()

	if _, err := m.request("observe_property", pauseObserverID, "pause"); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *MPV) readLoop() {
	defer close(m.done)

	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg mpvMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			m.logger.Debug("ignoring malformed mpv message", "error", err)
			continue
		}

		if msg.Event == "" {
			m.resolve(mpvReply{RequestID: msg.RequestID, Error: msg.Error, Data: msg.Data})
			continue
		}
		m.handleEvent(msg.Event, msg.Name, msg.Reason, msg.Data)
	}

	m.mu.Lock()
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
	closed := m.closed
	m.mu.Unlock()

	if !closed {
		m.emit(Event{Kind: EventError, Err: fmt.Errorf("%w: mpv connection lost", shared.ErrBackendUnavailable)})
	}
}

func (m *MPV) resolve(r mpvReply) {
	m.mu.Lock()
	ch, ok := m.pending[r.RequestID]
	delete(m.pending, r.RequestID)
	m.mu.Unlock()

	if ok {
		ch <- r
	}
}

func (m *MPV) handleEvent(name, prop, reason string, data json.RawMessage) {
	m.mu.Lock()
	track := m.trackID
	m.mu.Unlock()

	switch name {
	case "file-loaded":
		m.emit(Event{Kind: EventReady, TrackID: track})
	case "end-file":
		switch reason {
		case "eof":
			m.emit(Event{Kind: EventStateChanged, TrackID: track, State: StateEnded})
			m.emit(Event{Kind: EventEnded, TrackID: track})
		case "error":
			m.emit(Event{Kind: EventError, TrackID: track, Err: fmt.Errorf("%w: mpv failed to play %s", shared.ErrBackendUnavailable, track)})
		}
	case "property-change":
		if prop != "pause" {
			return
		}
		var paused bool
		if err := json.Unmarshal(data, &paused); err != nil {
			return
		}
		state := StatePlaying
		if paused {
			state = StatePaused
		}
		m.emit(Event{Kind: EventStateChanged, TrackID: track, State: state})
	}
}

func (m *MPV) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("dropping backend event", "kind", ev.Kind, "track", ev.TrackID)
	}
}

func (m *MPV) request(args ...any) (json.RawMessage, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, shared.ErrBackendClosed
	}
	m.nextID++
	id := m.nextID
	ch := make(chan mpvReply, 1)
	m.pending[id] = ch
	m.mu.Unlock()

	payload, err := json.Marshal(mpvCommand{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mpv command: %w", err)
	}

	m.writeMu.Lock()
	_, err = m.conn.Write(append(payload, '\n'))
	m.writeMu.Unlock()
	if err != nil {
		m.forget(id)
		return nil, fmt.Errorf("%w: %w", shared.ErrBackendUnavailable, err)
	}

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: mpv connection closed", shared.ErrBackendUnavailable)
		}
		if r.Error != "" && r.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], r.Error)
		}
		return r.Data, nil
	case <-time.After(mpvReplyTimeout):
		m.forget(id)
		return nil, fmt.Errorf("%w: mpv did not answer %v", shared.ErrBackendUnavailable, args[0])
	}
}

func (m *MPV) forget(id int) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

func (m *MPV) floatProperty(name string) (float64, error) {
	data, err := m.request("get_property", name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("mpv %s: %w", name, err)
	}
	return v, nil
}

// Events implements [Backend].
func (m *MPV) Events() <-chan Event {
	return m.events
}

// Load replaces the current file with the track's watch page. mpv resolves it through its ytdl hook.
func (m *MPV) Load(trackID string) error {
	m.mu.Lock()
	m.trackID = trackID
	m.mu.Unlock()

	url := models.Track{ID: trackID}.WatchURL()
	if _, err := m.request("set_property", "pause", true); err != nil {
		return err
	}
	_, err := m.request("loadfile", url, "replace")
	return err
}

// Play implements [Backend].
func (m *MPV) Play() error {
	_, err := m.request("set_property", "pause", false)
	return err
}

// Pause implements [Backend].
func (m *MPV) Pause() error {
	_, err := m.request("set_property", "pause", true)
	return err
}

// SeekTo jumps to an absolute position. mpv always seeks ahead, so allowSeekAhead is ignored.
func (m *MPV) SeekTo(seconds float64, _ bool) error {
	_, err := m.request("seek", max(0, seconds), "absolute")
	return err
}

// SetVolume implements [Backend].
func (m *MPV) SetVolume(volume int) error {
	_, err := m.request("set_property", "volume", ClampVolume(volume))
	return err
}

// Position returns mpv's time-pos property.
func (m *MPV) Position() (float64, error) {
	return m.floatProperty("time-pos")
}

// Duration returns mpv's duration property.
func (m *MPV) Duration() (float64, error) {
	return m.floatProperty("duration")
}

// Close quits mpv, closes the connection and the event channel.
func (m *MPV) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.cmd != nil {
		payload, _ := json.Marshal(mpvCommand{Command: []any{"quit"}})
		m.writeMu.Lock()
		_, _ = m.conn.Write(append(payload, '\n'))
		m.writeMu.Unlock()
	}

	err := m.conn.Close()
	<-m.done
	close(m.events)

	if m.cmd != nil {
		done := make(chan error, 1)
		go func() { done <- m.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(mpvReplyTimeout):
			_ = m.cmd.Process.Kill()
			<-done
		}
	}

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
