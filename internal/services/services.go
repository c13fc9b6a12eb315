// package services defines interface Catalog for browsing and searching the track catalog
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/shared"
)

// MaxQueryLength is the longest search query sent to the catalog, in characters.
const MaxQueryLength = 300

// Catalog defines the browse and search operations of the external catalog.
//
// Every method returns tracks deduplicated by id in first-occurrence order.
type Catalog interface {
	// FetchHome returns the home feed.
	FetchHome(ctx context.Context) ([]models.Track, error)

	// FetchArtists returns the artists feed.
	FetchArtists(ctx context.Context) ([]models.Track, error)

	// FetchTrending returns the trending feed.
	FetchTrending(ctx context.Context) ([]models.Track, error)

	// FetchSearch returns results for query.
	FetchSearch(ctx context.Context, query string) ([]models.Track, error)
}

// Fetch dispatches a browse context to the matching catalog call.
//
// A search query overrides the view. The about view has no tracks. Playlist contexts are owned by the library and
// are rejected with [shared.ErrInvalidInput].
func Fetch(ctx context.Context, c Catalog, bc models.BrowseContext) ([]models.Track, error) {
	if bc.IsSearch() {
		return c.FetchSearch(ctx, bc.Query)
	}

	switch bc.View {
	case models.ViewHome, "":
		return c.FetchHome(ctx)
	case models.ViewArtists:
		return c.FetchArtists(ctx)
	case models.ViewTrending:
		return c.FetchTrending(ctx)
	case models.ViewAbout:
		return []models.Track{}, nil
	case models.ViewPlaylist:
		return nil, fmt.Errorf("%w: playlist contexts are resolved from the library", shared.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown view %q", shared.ErrInvalidInput, bc.View)
	}
}
