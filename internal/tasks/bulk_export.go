package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/desertthunder/limuzic/internal/formatter"
	"github.com/desertthunder/limuzic/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 4
	MaxWorkers       = 10
	DefaultRateLimit = 5.0
	ManifestFilename = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format
	OutputDir  string           // Base output directory (default: limuzic_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
	RateLimit  float64          // Playlists started per second (default: 5)
	HTTPClient *http.Client     // Used for Markdown cover downloads
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlistId"`
	PlaylistName string   `json:"playlistName"`
	TrackCount   int      `json:"trackCount"`
	Success      bool     `json:"success"`
	Files        []string `json:"files"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`

	index int
}

// BulkExportResult summarizes a bulk export run. Results follow the order of the input playlists.
type BulkExportResult struct {
	Format            formatter.Format       `json:"format"`
	ExportedAt        string                 `json:"exportedAt"`
	OutputDirectory   string                 `json:"outputDirectory"`
	TotalPlaylists    int                    `json:"totalPlaylists"`
	SuccessfulExports int                    `json:"successfulExports"`
	FailedExports     int                    `json:"failedExports"`
	Results           []PlaylistExportResult `json:"results"`
	ManifestPath      string                 `json:"-"`
}

type exportJob struct {
	index    int
	playlist models.Playlist
}

// BulkExport exports playlists concurrently with rate limiting and progress tracking.
//
// Failed playlists are reported in the result and do not stop the others. The manifest is written even when some
// exports fail; an error is returned only when the run could not start, was cancelled, or the manifest could not be
// written.
func (e *ExportEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	playlists []models.Playlist,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatM3U
	}
	if _, err := formatter.ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("limuzic_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	if opts.NumWorkers > MaxWorkers {
		opts.NumWorkers = MaxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	e.logger.Info("bulk export started", "playlists", len(playlists), "format", opts.Format,
		"workers", opts.NumWorkers, "dir", opts.OutputDir)

	result := &BulkExportResult{
		Format:          opts.Format,
		ExportedAt:      time.Now().UTC().Format(time.RFC3339),
		OutputDirectory: opts.OutputDir,
		TotalPlaylists:  len(playlists),
		Results:         make([]PlaylistExportResult, 0, len(playlists)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, len(playlists))
	results := make(chan PlaylistExportResult, len(playlists))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i, p := range playlists {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			jobs <- exportJob{index: i, playlist: p}
			e.sendProgress(prog, queueingUpdate(i+1, len(playlists), p.Name))
		}
		return nil
	})
	for range opts.NumWorkers {
		g.Go(func() error {
			e.exportWorker(gctx, jobs, results, opts)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(playlists), res))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "id", res.PlaylistID, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(playlists), res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("bulk export cancelled after %d of %d playlists: %w", completed, len(playlists), err)
	}

	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int { return a.index - b.index })

	manifestPath := filepath.Join(opts.OutputDir, ManifestFilename)
	e.sendProgress(prog, manifestUpdate(manifestPath))
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export finished", "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	jobs <-chan exportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSinglePlaylist(job, opts)
	}
}

// exportSinglePlaylist exports a single playlist to the appropriate format.
func exportSinglePlaylist(j exportJob, opts BulkExportOpts) PlaylistExportResult {
	p := j.playlist
	result := PlaylistExportResult{
		PlaylistID:   p.ID,
		PlaylistName: p.Name,
		TrackCount:   p.Len(),
		Files:        []string{},
		index:        j.index,
	}

	fail := func(err error) PlaylistExportResult {
		result.Error = err
		result.ErrorMessage = err.Error()
		return result
	}

	switch opts.Format {
	case formatter.FormatCSV:
		csvRes, err := formatter.WriteCSVExport(p, filepath.Join(opts.OutputDir, p.ID))
		if err != nil {
			return fail(fmt.Errorf("CSV export failed: %w", err))
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}
	case formatter.FormatMarkdown:
		mdRes, err := formatter.WriteMarkdownExport(p, filepath.Join(opts.OutputDir, p.ID), opts.HTTPClient)
		if err != nil {
			return fail(fmt.Errorf("markdown export failed: %w", err))
		}
		result.Files = mdRes.Files
		result.Warnings = mdRes.Warnings
	default:
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.%s", p.ID, opts.Format))
		written, err := formatter.WriteExport(p, opts.Format, path)
		if err != nil {
			return fail(fmt.Errorf("%s export failed: %w", opts.Format, err))
		}
		result.Files = []string{written}
	}

	result.Success = true
	return result
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
