package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/session"
	"github.com/desertthunder/limuzic/internal/shared"
)

// Session is the part of a session loop the handler drives.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
	Dispatch(ctx context.Context, intent session.Intent) (session.Snapshot, error)
	Navigate(bc models.BrowseContext) error
	Retry() error
}

// Library is the read side of the library store.
type Library interface {
	Playlists() []models.Playlist
	History() []string
	FindTrack(id string) (models.Track, bool)
}

// SessionHandler serves the remote-control API.
type SessionHandler struct {
	session Session
	library Library
	logger  *log.Logger
}

// NewSessionHandler creates a [SessionHandler].
func NewSessionHandler(s Session, lib Library, logger *log.Logger) *SessionHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionHandler{session: s, library: lib, logger: logger}
}

// Register adds the handler's routes to r.
func (h *SessionHandler) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodGet, "/api/session", h.getSession)
	r.HandleFunc(http.MethodGet, "/api/session/stream", h.streamSession)
	r.HandleFunc(http.MethodPost, "/api/session/{intent}", h.postIntent)
	r.HandleFunc(http.MethodGet, "/api/playlists", h.getPlaylists)
	r.HandleFunc(http.MethodGet, "/api/history", h.getHistory)
}

// NewRouter returns a [BasicRouter] with logging and recovery middleware and h's routes.
func NewRouter(h *SessionHandler) *BasicRouter {
	r := NewBasicRouter()
	r.Use(Recover(h.logger), Logging(h.logger))
	h.Register(r)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *SessionHandler) getPlaylists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.library.Playlists())
}

func (h *SessionHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.library.History())
}

// streamSession writes each published snapshot as a server-sent event until the client goes away.
func (h *SessionHandler) streamSession(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	snaps, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				h.logger.Error("failed to encode snapshot", "error", err)
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// intentFor translates a POST intent name and its query into a controller mutation.
func (h *SessionHandler) intentFor(r *http.Request) (session.Intent, int, error) {
	q := r.URL.Query()

	switch name := r.PathValue("intent"); name {
	case "play", "toggle":
		return func(c *session.Controller) { c.TogglePlay() }, 0, nil
	case "next":
		return func(c *session.Controller) { c.Advance(models.Next) }, 0, nil
	case "prev":
		return func(c *session.Controller) { c.Advance(models.Prev) }, 0, nil
	case "shuffle":
		return func(c *session.Controller) { c.ToggleShuffle() }, 0, nil
	case "repeat":
		return func(c *session.Controller) { c.CycleRepeat() }, 0, nil
	case "seek":
		percent, err := strconv.ParseFloat(q.Get("percent"), 64)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: percent=%q", shared.ErrInvalidArgument, q.Get("percent"))
		}
		return func(c *session.Controller) { c.Seek(percent) }, 0, nil
	case "volume":
		v, err := strconv.Atoi(q.Get("value"))
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: value=%q", shared.ErrInvalidArgument, q.Get("value"))
		}
		return func(c *session.Controller) { c.SetVolume(v) }, 0, nil
	case "expand":
		raw := q.Get("value")
		if raw == "" {
			return func(c *session.Controller) { c.SetExpanded(!c.State().IsExpanded) }, 0, nil
		}
		expanded, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("%w: value=%q", shared.ErrInvalidArgument, raw)
		}
		return func(c *session.Controller) { c.SetExpanded(expanded) }, 0, nil
	case "select":
		track, err := h.resolveTrack(q.Get("id"))
		if err != nil {
			return nil, http.StatusNotFound, err
		}
		return func(c *session.Controller) { c.SelectTrack(track) }, 0, nil
	default:
		return nil, http.StatusNotFound, fmt.Errorf("unknown intent %q", name)
	}
}

// resolveTrack finds a track in the live queue first, then in the library.
func (h *SessionHandler) resolveTrack(id string) (models.Track, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Track{}, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	for _, t := range h.session.Snapshot().Queue {
		if t.ID == id {
			return t, nil
		}
	}
	if t, ok := h.library.FindTrack(id); ok {
		return t, nil
	}
	return models.Track{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
}

func browseContextFrom(r *http.Request) (models.BrowseContext, error) {
	q := r.URL.Query()
	bc := models.BrowseContext{Query: strings.TrimSpace(q.Get("query")), PlaylistID: q.Get("playlist")}

	view := q.Get("view")
	switch {
	case view != "":
		v, err := models.ParseBrowseView(view)
		if err != nil {
			return bc, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		bc.View = v
	case bc.PlaylistID != "":
		bc.View = models.ViewPlaylist
	default:
		bc.View = models.ViewHome
	}
	return bc, nil
}

func (h *SessionHandler) postIntent(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("intent") {
	case "navigate":
		bc, err := browseContextFrom(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respond(w, r, http.StatusAccepted, h.session.Navigate(bc))
		return
	case "retry":
		h.respond(w, r, http.StatusAccepted, h.session.Retry())
		return
	}

	intent, status, err := h.intentFor(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	snap, err := h.session.Dispatch(r.Context(), intent)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// respond reports the snapshot after an asynchronous request has been queued.
func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, status int, queued error) {
	if queued != nil {
		h.fail(w, queued)
		return
	}
	snap, err := h.session.Dispatch(r.Context(), func(*session.Controller) {})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, status, snap)
}

func (h *SessionHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrLoopStopped) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.logger.Error("session request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
