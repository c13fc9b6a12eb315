package shared

import "fmt"

var (
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Catalog errors
	ErrCatalogUnavailable = fmt.Errorf("catalog unavailable")

	// Library errors
	ErrPersistence      = fmt.Errorf("failed to persist state")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Media backend errors
	ErrBackendUnavailable = fmt.Errorf("media backend unavailable")
	ErrBackendClosed      = fmt.Errorf("media backend closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
