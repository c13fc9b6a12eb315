package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/limuzic/internal/models"
	"github.com/desertthunder/limuzic/internal/shared"
)

var _ Catalog = (*CatalogService)(nil)

// CatalogService implements [Catalog] over HTTP.
type CatalogService struct {
	api    *APIService
	logger *log.Logger
}

// NewCatalogService creates a catalog client on top of api.
func NewCatalogService(api *APIService, logger *log.Logger) *CatalogService {
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogService{api: api, logger: logger}
}

// NewCatalogFromConfig builds the HTTP client, rate limiter and catalog client from configuration.
func NewCatalogFromConfig(cfg shared.CatalogConfig, logger *log.Logger) *CatalogService {
	client := &http.Client{Timeout: cfg.Timeout()}
	api := NewAPIService(cfg.BaseURL, client, WithRateLimit(cfg.RequestsPerSecond), WithLogger(logger))
	return NewCatalogService(api, logger)
}

// API exposes the underlying transport.
func (s *CatalogService) API() *APIService {
	return s.api
}

// FetchHome returns the home feed.
func (s *CatalogService) FetchHome(ctx context.Context) ([]models.Track, error) {
	return s.fetch(ctx, "/home")
}

// FetchArtists returns the artists feed.
func (s *CatalogService) FetchArtists(ctx context.Context) ([]models.Track, error) {
	return s.fetch(ctx, "/artists")
}

// FetchTrending returns the trending feed.
func (s *CatalogService) FetchTrending(ctx context.Context) ([]models.Track, error) {
	return s.fetch(ctx, "/trending")
}

// FetchSearch returns search results for query.
//
// The query is trimmed and truncated to [MaxQueryLength] characters. An empty query is rejected.
func (s *CatalogService) FetchSearch(ctx context.Context, query string) ([]models.Track, error) {
	q := TruncateQuery(query)
	if q == "" {
		return nil, fmt.Errorf("%w: search query is empty", shared.ErrInvalidInput)
	}
	return s.fetch(ctx, "/search/"+url.PathEscape(q))
}

func (s *CatalogService) fetch(ctx context.Context, path string) ([]models.Track, error) {
	start := time.Now()

	resp, err := s.api.Get(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrCatalogUnavailable, err)
	}

	if !resp.OK() {
		s.logger.Warn("catalog returned error status", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: GET %s returned status %d", shared.ErrCatalogUnavailable, path, resp.StatusCode)
	}

	var raw []RawResult
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", shared.ErrCatalogUnavailable, path, err)
	}

	tracks := NormalizeResults(raw)
	s.logger.Debug("catalog fetch complete", "path", path, "results", len(tracks), "took", time.Since(start))
	return tracks, nil
}
