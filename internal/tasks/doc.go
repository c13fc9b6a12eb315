// Package tasks runs long library operations on a worker pool with progress reporting.
//
// # Bulk Export
//
// [ExportEngine.BulkExport] writes every given playlist in one export format:
//   - playlists are queued through a rate limiter so cover downloads for Markdown exports stay polite
//   - a bounded pool of workers renders each playlist with the formatter package
//   - partial failures are recorded per playlist and do not abort the run
//   - an export_manifest.json summarizing the run is written to the output directory
//
// # Progress Reporting
//
// Operations accept an optional send-only channel of [ProgressUpdate]. Updates are sent with select/default so a
// slow or absent reader never blocks the export.
package tasks
