// Package services implements the catalog client: browse and search requests against the catalog HTTP service and
// normalization of its raw result records into [models.Track] values.
//
// # Catalog Interface
//
// [Catalog] is the contract the session and the CLI depend on. [CatalogService] implements it over HTTP:
//
//	GET /home
//	GET /artists
//	GET /trending
//	GET /search/{query}   (query trimmed, truncated to 300 characters, percent-encoded)
//
// Each endpoint returns a JSON array of raw result records ([RawResult]).
//
// # Normalization
//
// [NormalizeResult] maps one record to a track:
//   - artist is the title text before the first "-", defaulting to "Unknown Artist"
//   - duration seconds are parsed from "M:SS" or "H:MM:SS"; anything else is 0 ([ParseDuration])
//   - the cover prefers the high resolution thumbnail and falls back to the default one
//
// [NormalizeResults] drops records without a video id and deduplicates by id, keeping the first occurrence.
//
// # Error Handling
//
// Transport failures, non-2xx responses and undecodable bodies wrap [shared.ErrCatalogUnavailable].
// An empty result list is not an error. Duration and thumbnail problems are silently defaulted.
//
// # Transport
//
// [APIService] performs the raw requests. It applies an optional [rate.Limiter] and is also used directly by the
// CLI's "catalog raw" command for debugging the catalog service.
package services
