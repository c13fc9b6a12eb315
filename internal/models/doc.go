// Package models defines the domain values shared by the catalog client, the library store and the playback session.
//
// The package contains two categories of types:
//
// 1. Catalog values: immutable records normalized from catalog results
//   - [Track] : a playable item, identified by its external content id
//
// 2. Library and session values
//   - [Playlist] : an ordered, duplicate-free list of tracks owned by the library
//   - [RepeatMode] : the repeat policy (off, all, one)
//   - [Direction] : next/prev navigation through the queue
//   - [BrowseContext] : the view a queue is derived from (home, artists, trending, playlist, search)
//
// JSON tags match the blobs persisted by the library, so stored playlists stay readable across versions.
package models
