// Package session implements the playback session: the now-playing track, the active queue, transport state and
// the shuffle and repeat policies.
//
// # Controller
//
// [Controller] is a plain state machine. It is not safe for concurrent use. Transport phases:
//
//	Idle → Loading → Playing ⇄ Paused → Advancing → Loading | Paused
//
// Selecting a track follows a three-way click contract: selecting the current track opens the expanded view, selecting
// it again toggles play/pause, and selecting a different track loads it, starts playback and opens the expanded view.
//
// The current track is held by id. It is resolved against the queue first and then against every playlist; when it
// cannot be found the id is kept and [Controller.Current] reports nothing.
//
// # Loop
//
// [Loop] owns a Controller on a single goroutine. User intents, backend events, catalog completions, library
// changes and progress ticks are serialized onto it, so every transition is atomic. The progress ticker only exists
// while playing. Views observe [Snapshot] values through [Loop.Subscribe].
//
// Catalog fetches are tagged with an increasing token. With [LastCompletionWins] every completion replaces the
// queue, so a slow fetch may overwrite a newer navigation. [LatestRequestWins] discards completions whose token is
// not the latest issued.
package session
