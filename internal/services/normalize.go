package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/limuzic/internal/models"
)

const (
	// UnknownArtist is used when a title has no text before its first "-".
	UnknownArtist = "Unknown Artist"
	// DefaultAlbum is the album label applied to every catalog result.
	DefaultAlbum = "YouTube"
	// DefaultDuration is displayed when the catalog omits a duration.
	DefaultDuration = "0:00"
)

// RawResult is one record of a catalog response body.
type RawResult struct {
	ID          RawID      `json:"id"`
	Title       string     `json:"title"`
	DurationRaw string     `json:"duration_raw"`
	Snippet     RawSnippet `json:"snippet"`
}

// RawID holds the upstream identifier of a result.
type RawID struct {
	VideoID string `json:"videoId"`
}

// RawSnippet wraps the thumbnail set of a result.
type RawSnippet struct {
	Thumbnails RawThumbnails `json:"thumbnails"`
}

// RawThumbnails holds the default thumbnail URL and an optional high resolution variant.
type RawThumbnails struct {
	URL  string        `json:"url"`
	High *RawThumbnail `json:"high,omitempty"`
}

// RawThumbnail is a single thumbnail variant.
type RawThumbnail struct {
	URL string `json:"url"`
}

// coverURL walks the thumbnail candidates from best to worst and returns the first non-empty one.
func (t RawThumbnails) coverURL() string {
	candidates := make([]string, 0, 2)
	if t.High != nil {
		candidates = append(candidates, t.High.URL)
	}
	candidates = append(candidates, t.URL)

	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// NormalizeResult maps a raw catalog record to a [models.Track].
func NormalizeResult(r RawResult) models.Track {
	display := strings.TrimSpace(r.DurationRaw)
	if display == "" {
		display = DefaultDuration
	}

	return models.Track{
		ID:              r.ID.VideoID,
		Title:           r.Title,
		Artist:          ArtistFromTitle(r.Title),
		Album:           DefaultAlbum,
		CoverURL:        r.Snippet.Thumbnails.coverURL(),
		DurationDisplay: display,
		DurationSeconds: ParseDuration(r.DurationRaw),
	}
}

// NormalizeResults normalizes records, skipping those without a video id and keeping the first of any duplicates.
func NormalizeResults(raw []RawResult) []models.Track {
	tracks := make([]models.Track, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.ID.VideoID) == "" {
			continue
		}
		tracks = append(tracks, NormalizeResult(r))
	}
	return models.DedupeTracks(tracks)
}

// ArtistFromTitle returns the trimmed text before the first "-" of title, or [UnknownArtist] when that is empty.
func ArtistFromTitle(title string) string {
	head, _, _ := strings.Cut(title, "-")
	if head = strings.TrimSpace(head); head != "" {
		return head
	}
	return UnknownArtist
}

// ParseDuration converts "M:SS" or "H:MM:SS" into seconds.
//
// Empty, malformed or negative input yields 0.
func ParseDuration(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || total > (math.MaxInt-n)/60 {
			return 0
		}
		total = total*60 + n
	}
	return float64(total)
}

// TruncateQuery trims q and limits it to [MaxQueryLength] characters.
func TruncateQuery(q string) string {
	q = strings.TrimSpace(q)
	runes := []rune(q)
	if len(runes) > MaxQueryLength {
		return string(runes[:MaxQueryLength])
	}
	return q
}
