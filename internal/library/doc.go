// Package library owns the user's playlists and recent search history.
//
// A [Library] is loaded once from a [Store] when opened and rewrites the affected collection in full after every
// mutation. Two blobs are used: "playlists" (an array of playlists, always including the default "Favorites"
// playlist) and "searchHistory" (up to five distinct terms, most recent first).
//
// Mutations on unknown ids and attempts to delete the default playlist are silent no-ops. A failed write still
// updates the in-memory collection and returns an error wrapping [shared.ErrPersistence].
//
// The Library is safe for concurrent use.
package library
