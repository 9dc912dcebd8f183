package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/herald-fm/herald/models"
	"golang.org/x/time/rate"
)

const defaultAPIBaseURL = "http://ws.audioscrobbler.com/2.0/"

// Service fetches ranked top-tracks listings from the Last.fm API. It does
// not own an HTTP client: callers pass the sweep's shared session so one
// connection pool serves the whole run. No retries here either; a failed
// fetch is retried by the next day's sweep.
type Service struct {
	apiBase string
	limiter *rate.Limiter
	logger  *log.Logger
}

func New(apiBase string, logger *log.Logger) *Service {
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		apiBase: apiBase,
		// Last.fm unofficial rate limit is ~5 requests per second
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:  logger,
	}
}

// TopTracks fetches the user's most-played tracks for one time range,
// most-played first. A non-success status or an embedded error payload
// yields an *APIError carrying the service's own message.
func (s *Service) TopTracks(ctx context.Context, session *http.Client, creds *models.Credentials, period models.TimeRange) ([]models.Track, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("method", "user.gettoptracks")
	params.Set("user", creds.Username)
	params.Set("api_key", creds.APIKey)
	params.Set("period", string(period))

	apiURL := s.apiBase + "?" + params.Encode()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", creds.Username, err)
	}

	resp, err := session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks for %s: %w", creds.Username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("status %d for %s period %s: %s", resp.StatusCode, creds.Username, period, string(bodyBytes)),
		}
	}

	var parsed topTracksResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", creds.Username, err)
	}

	if parsed.Error != 0 {
		return nil, &APIError{Code: parsed.Error, Message: parsed.Message}
	}

	tracks := make([]models.Track, 0, len(parsed.TopTracks.Tracks))
	for _, t := range parsed.TopTracks.Tracks {
		tracks = append(tracks, models.Track{Artist: t.Artist.Name, Name: t.Name})
	}

	s.logger.Printf("Fetched %d top tracks for %s (period %s)", len(tracks), creds.Username, period)
	return tracks, nil
}
