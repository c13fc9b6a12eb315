package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/services"
	"github.com/desertthunder/limuzic/internal/shared"
	"github.com/urfave/cli/v3"
)

// writeTracks prints tracks as JSON or as a numbered listing.
func (r *Runner) writeTracks(cmd *cli.Command, title string, tracks []models.Track) error {
	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(title)
	if len(tracks) == 0 {
		return r.writePlain("No tracks found\n")
	}
	for i, t := range tracks {
		r.writePlain("%3d. %s [%s]\n     %s · %s\n", i+1, t.Title, t.DurationDisplay, t.Artist, t.ID)
	}
	return nil
}

func (r *Runner) catalogView(ctx context.Context, cmd *cli.Command, bc models.BrowseContext, title string) error {
	r.logger.Debug("fetching catalog", "context", bc)

	tracks, err := services.Fetch(ctx, r.catalog, bc)
	if err != nil {
		return err
	}
	return r.writeTracks(cmd, title, tracks)
}

// CatalogHome prints the home feed.
func (r *Runner) CatalogHome(ctx context.Context, cmd *cli.Command) error {
	return r.catalogView(ctx, cmd, models.BrowseContext{View: models.ViewHome}, "Home")
}

// CatalogArtists prints the artists feed.
func (r *Runner) CatalogArtists(ctx context.Context, cmd *cli.Command) error {
	return r.catalogView(ctx, cmd, models.BrowseContext{View: models.ViewArtists}, "Artists")
}

// CatalogTrending prints the trending feed.
func (r *Runner) CatalogTrending(ctx context.Context, cmd *cli.Command) error {
	return r.catalogView(ctx, cmd, models.BrowseContext{View: models.ViewTrending}, "Trending")
}

// CatalogSearch searches the catalog. The query is recorded in search history unless --no-history is set.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	if !cmd.Bool("no-history") {
		lib, err := r.openLibrary(ctx)
		if err != nil {
			return err
		}
		if err := lib.AddSearchTerm(ctx, query); err != nil {
			r.logger.Warn("failed to record search", "query", query, "error", err)
		}
	}

	return r.catalogView(ctx, cmd, models.BrowseContext{Query: query}, fmt.Sprintf("Search: %s", query))
}

// CatalogRaw makes a direct GET request to the catalog service
func (r *Runner) CatalogRaw(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if r.api == nil {
		return fmt.Errorf("%w: no HTTP catalog configured", shared.ErrCatalogUnavailable)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCatalogUnavailable, err)
	}

	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrCatalogUnavailable, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON && cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
