package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAPIBaseURL = "https://discord.com/api/v10"
	cdnBaseURL        = "https://cdn.discordapp.com"
)

// User is the subset of the Discord user object the notifier needs.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	GlobalName  string `json:"global_name"`
	Avatar      string `json:"avatar"`
	AccentColor int    `json:"accent_color"`
}

// DisplayName prefers the user-chosen global name over the account handle.
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the CDN address of the user's avatar, or "" when the
// user has none uploaded.
func (u *User) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("%s/avatars/%s/%s.png", cdnBaseURL, u.ID, u.Avatar)
}

// Resolver fetches display identities from the Discord REST API with a bot
// token. Discovery works without one; notifications then fall back to the
// Last.fm username and a derived colour.
type Resolver struct {
	apiBase string
	token   string
	limiter *rate.Limiter
}

func New(apiBase, botToken string) *Resolver {
	if apiBase == "" {
		apiBase = defaultAPIBaseURL
	}
	return &Resolver{
		apiBase: apiBase,
		token:   botToken,
		// global REST limit is 50 req/s; stay far below it
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// FetchUser resolves one Discord user by id over the sweep's shared session.
func (r *Resolver) FetchUser(ctx context.Context, session *http.Client, userID int64) (*User, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	url := r.apiBase + "/users/" + strconv.FormatInt(userID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for user %d: %w", userID, err)
	}
	req.Header.Set("Authorization", "Bot "+r.token)

	resp, err := session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("discord API returned status %d for user %d: %s",
			resp.StatusCode, userID, string(bodyBytes))
	}

	user := &User{}
	if err := json.NewDecoder(resp.Body).Decode(user); err != nil {
		return nil, fmt.Errorf("failed to decode user %d: %w", userID, err)
	}

	return user, nil
}
