package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sync"

	"github.com/herald-fm/herald/models"
)

// Sender is the display identity a notification is attributed to.
// AccentColour is 0 when the user has none set; Notify then derives one
// deterministically from the user id.
type Sender struct {
	UserID       int64
	DisplayName  string
	AvatarURL    string
	AccentColour int
}

// Embed mirrors the Discord webhook embed object, decimal colour included.
type Embed struct {
	Title string `json:"title"`
	Color int    `json:"color"`
	URL   string `json:"url"`
}

type message struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

// Service posts daily-track notifications to a Discord webhook. The endpoint
// is process-wide mutable state: a single settings-change listener calls
// SetEndpoint, everything else reads through CurrentEndpoint.
type Service struct {
	mu       sync.RWMutex
	endpoint string

	cleaner *QueryCleaner
	logger  *log.Logger
}

func New(endpoint string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		endpoint: endpoint,
		cleaner:  NewQueryCleaner(),
		logger:   logger,
	}
}

// CurrentEndpoint returns the webhook URL as of the latest settings change.
func (s *Service) CurrentEndpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

// SetEndpoint is called by the configuration watcher when the webhook URL
// changes. In-flight notifications keep the URL they already read.
func (s *Service) SetEndpoint(endpoint string) {
	s.mu.Lock()
	s.endpoint = endpoint
	s.mu.Unlock()
	s.logger.Printf("Webhook endpoint updated")
}

// Colour derives a stable embed colour from a user identity alone. Seeded
// pseudo-random so the same user always gets the same colour, including
// across restarts and in tests.
func Colour(userID int64) int {
	return rand.New(rand.NewSource(userID)).Intn(0x1000000)
}

// SearchURL builds a video-platform search link for a track. The query is
// cleaned of featuring credits and parenthesised edition guff first; cleaning
// affects only this link, never the ledger identity.
func (s *Service) SearchURL(track models.Track) string {
	name := s.cleaner.Clean(track.Name)
	query := url.Values{}
	query.Set("search_query", name+" "+track.Artist)
	return "https://www.youtube.com/results?" + query.Encode()
}

// Notify posts one embed for a discovered track, attributed to the sender.
// One call per discovered track; failures are surfaced to the caller, which
// isolates them per user.
func (s *Service) Notify(ctx context.Context, session *http.Client, sender Sender, track models.Track) error {
	endpoint := s.CurrentEndpoint()
	if endpoint == "" {
		return fmt.Errorf("no webhook endpoint configured")
	}

	colour := sender.AccentColour
	if colour == 0 {
		colour = Colour(sender.UserID)
	}

	payload := message{
		Username:  "Daily Music - " + sender.DisplayName,
		AvatarURL: sender.AvatarURL,
		Embeds: []Embed{{
			Title: fmt.Sprintf("%s by %s", track.Name, track.Artist),
			Color: colour,
			URL:   s.SearchURL(track),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := session.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}
