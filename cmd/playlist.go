package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/limuzic/internal/formatter"
	"github.com/desertthunder/limuzic/internal/library"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/shared"
	"github.com/desertthunder/limuzic/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) playlistArg(ctx context.Context, cmd *cli.Command) (*library.Library, models.Playlist, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return nil, models.Playlist{}, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	lib, err := r.openLibrary(ctx)
	if err != nil {
		return nil, models.Playlist{}, err
	}

	p, ok := lib.Playlist(id)
	if !ok {
		return lib, models.Playlist{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return lib, p, nil
}

// PlaylistList prints every playlist, default first.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}

	playlists := lib.Playlists()
	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Playlists")
	for _, p := range playlists {
		marker := " "
		if p.IsDefault {
			marker = "★"
		}
		r.writePlain("%s %-24s %3d tracks  %s\n", marker, p.Name, p.Len(), p.ID)
	}
	return nil
}

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}

	p, err := lib.CreatePlaylist(ctx, name)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", p.Name, p.ID)
}

// PlaylistDelete deletes a playlist. Deleting the default playlist is refused.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	lib, p, err := r.playlistArg(ctx, cmd)
	if err != nil {
		return err
	}
	if p.IsDefault {
		return fmt.Errorf("%w: the default playlist cannot be deleted", shared.ErrInvalidArgument)
	}

	deleted, err := lib.DeletePlaylist(ctx, p.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, p.ID)
	}
	return r.writePlain("✓ Deleted playlist %q\n", p.Name)
}

// PlaylistShow prints a playlist's tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	_, p, err := r.playlistArg(ctx, cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	return r.writeTracks(cmd, fmt.Sprintf("%s (%s)", p.Name, p.ID), p.Tracks)
}

// resolveTrack finds a track by id in the library, then in catalog search results.
func (r *Runner) resolveTrack(ctx context.Context, lib *library.Library, id string) (models.Track, error) {
	if t, ok := lib.FindTrack(id); ok {
		return t, nil
	}

	r.logger.Debug("track not in library, searching catalog", "id", id)
	results, err := r.catalog.FetchSearch(ctx, id)
	if err != nil {
		return models.Track{}, err
	}
	for _, t := range results {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Track{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
}

// PlaylistToggle adds a track to a playlist or removes it when already present.
func (r *Runner) PlaylistToggle(ctx context.Context, cmd *cli.Command) error {
	trackID := strings.TrimSpace(cmd.StringArg("track"))
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	lib, p, err := r.playlistArg(ctx, cmd)
	if err != nil {
		return err
	}

	var track models.Track
	if i := p.IndexOf(trackID); i >= 0 {
		track = p.Tracks[i]
	} else if track, err = r.resolveTrack(ctx, lib, trackID); err != nil {
		return err
	}

	added, err := lib.ToggleTrack(ctx, p.ID, track)
	if err != nil {
		return err
	}
	if added {
		return r.writePlain("✓ Added %q to %s\n", track.Title, p.Name)
	}
	return r.writePlain("✓ Removed %q from %s\n", track.Title, p.Name)
}

// PlaylistExport writes a playlist in the requested format.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	_, p, err := r.playlistArg(ctx, cmd)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	r.logger.Info("exporting playlist", "id", p.ID, "format", format, "tracks", p.Len())

	switch format {
	case formatter.FormatCSV:
		result, err := formatter.WriteCSVExport(p, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks\n", p.Len())
		r.writePlain("  Tracks:   %s\n", result.TracksFile)
		r.writePlain("  Metadata: %s\n", result.MetadataFile)
	case formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(p, output, r.httpClient)
		if err != nil {
			return err
		}
		for _, w := range result.Warnings {
			r.logger.Warn(w)
		}
		r.writePlain("✓ Exported %d tracks to %s\n", p.Len(), result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
	default:
		path, err := formatter.WriteExport(p, format, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s\n", p.Len(), path)
	}
	return nil
}

// PlaylistExportAll exports every playlist with the bulk export task, printing progress as it goes.
func (r *Runner) PlaylistExportAll(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	lib, err := r.openLibrary(ctx)
	if err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	engine := tasks.NewExportEngine(shared.WithLogger(r.logger, "component", "export"))
	result, err := engine.BulkExport(ctx, prog, lib.Playlists(), tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		HTTPClient: r.httpClient,
	})
	close(prog)
	<-printed
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d of %d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	r.writePlain("  Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d playlist exports failed", result.FailedExports)
	}
	return nil
}
