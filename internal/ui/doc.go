// Package ui implements the terminal player using bubbletea's Elm architecture.
//
// The TUI is a thin view over a playback session:
//  1. [BrowseView] : tabs (Home, Artists, Trending, Playlists, About) over the session queue
//  2. [PlaylistsView] : the playlist overview with create and delete
//  3. [SearchView] : a search prompt with recent searches
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union
// type. Every keypress becomes an intent sent to the session loop; the model only renders the snapshots the loop
// publishes, so it never owns playback state.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
