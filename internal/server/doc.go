// Package server exposes a playback session over a local HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/session").
//
// # Remote Control
//
// [SessionHandler] forwards intents to a running session loop and reports the resulting snapshot:
//
//	GET  /api/session           current snapshot
//	GET  /api/session/stream    snapshots as server-sent events
//	POST /api/session/{intent}  toggle, next, prev, seek, volume, shuffle, repeat, expand, select, navigate, retry
//	GET  /api/playlists         library playlists
//	GET  /api/history           recent searches
//
// The handler holds no session state of its own; every mutation goes through the loop.
//
// The server binds to 127.0.0.1 by default and has no authentication.
package server
