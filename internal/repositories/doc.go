// Package repositories implements SQLite persistence for the player's durable state.
//
// The library only needs "durably store and restore a mapping of keys to JSON-serializable values", so a single
// table holds one JSON blob per key (playlists, search history). Every save rewrites the whole blob in one statement,
// which keeps the stored value either the old or the new version, never a mix.
//
// Key Implementations:
//   - [StateRepository] : JSON blob store keyed by name, satisfying library.Store
//
// The schema is created by shared.RunMigrations.
package repositories
