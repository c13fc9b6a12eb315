// Package media wraps playback engines behind the [Backend] interface.
//
// A backend accepts imperative commands (load, play, pause, seek, volume) and reports asynchronous
// [Event] values on the channel returned by Events. Engine state codes use the embedded player numbering:
//
//	-1 unstarted, 0 ended, 1 playing, 2 paused, 3 buffering, 5 cued
//
// Implementations:
//   - [Clock] simulates an engine in process, advancing position with (injectable) time.
//   - [MPV] drives an external mpv process over its JSON IPC socket.
//   - [Deferred] accepts commands before a real engine is available and replays the latest load and volume once one
//     is attached.
package media
