package lastfm

import "fmt"

// topTracksResponse represents the Last.fm API response for
// user.gettoptracks. On failure the service keeps the 200 envelope and embeds
// an error/message pair instead of the toptracks object.
type topTracksResponse struct {
	Error     int       `json:"error,omitempty"`
	Message   string    `json:"message,omitempty"`
	TopTracks topTracks `json:"toptracks"`
}

type topTracks struct {
	Tracks []apiTrack `json:"track"`
}

// apiTrack carries only the fields discovery needs; the API also returns
// playcount, mbid, images and rank attributes which we ignore.
type apiTrack struct {
	Artist apiArtist `json:"artist"`
	Name   string    `json:"name"`
}

type apiArtist struct {
	Name string `json:"name"`
}

// APIError is an error payload embedded in a Last.fm response, or a
// non-success HTTP status. The message is kept verbatim for diagnostics.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("last.fm API error %d: %s", e.Code, e.Message)
}
