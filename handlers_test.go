package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/herald-fm/herald/db"
	"github.com/herald-fm/herald/models"
	"github.com/herald-fm/herald/service/discovery"
	"github.com/herald-fm/herald/service/lastfm"
)

// chartHandler serves the same canned top-tracks list for every period.
func chartHandler(tracks ...models.Track) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type apiTrack struct {
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
			Name string `json:"name"`
		}
		list := make([]apiTrack, 0, len(tracks))
		for _, tr := range tracks {
			var at apiTrack
			at.Artist.Name = tr.Artist
			at.Name = tr.Name
			list = append(list, at)
		}
		json.NewEncoder(w).Encode(map[string]any{"toptracks": map[string]any{"track": list}})
	})
}

func newTestApplication(t *testing.T, chart http.Handler) (*application, *db.DB) {
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if chart == nil {
		chart = chartHandler()
	}
	server := httptest.NewServer(chart)
	t.Cleanup(server.Close)

	discard := log.New(io.Discard, "", 0)
	app := &application{
		logger:    discard,
		db:        database,
		discovery: discovery.New(database, lastfm.New(server.URL, discard), discard),
	}
	return app, database
}

func postJSON(t *testing.T, app *application, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	rr := httptest.NewRecorder()
	app.routes().ServeHTTP(rr, req)
	return rr
}

func TestRegister(t *testing.T) {
	t.Run("saves credentials", func(t *testing.T) {
		app, database := newTestApplication(t, nil)

		rr := postJSON(t, app, "/register",
			`{"discord_id": 42, "lfm_username": "alice", "lfm_api_key": "secret"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		creds, err := database.GetCredentials(42)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if creds == nil || creds.Username != "alice" || creds.APIKey != "secret" {
			t.Errorf("Unexpected stored credentials: %+v", creds)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		app, database := newTestApplication(t, nil)

		for _, body := range []string{
			`{"lfm_username": "alice", "lfm_api_key": "secret"}`,
			`{"discord_id": 42, "lfm_api_key": "secret"}`,
			`{"discord_id": 42, "lfm_username": "alice"}`,
		} {
			rr := postJSON(t, app, "/register", body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400 for %s, got %d", body, rr.Code)
			}
		}

		users, err := database.ListCredentials()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(users) != 0 {
			t.Errorf("Expected no users saved, got %d", len(users))
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		app, _ := newTestApplication(t, nil)

		rr := postJSON(t, app, "/register", `{"discord_id": `)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})
}

func TestDiscoverNow(t *testing.T) {
	trackA := models.Track{Artist: "Daft Punk", Name: "One More Time"}

	t.Run("unregistered user gets 422", func(t *testing.T) {
		app, _ := newTestApplication(t, nil)

		rr := postJSON(t, app, "/discover/42", "")
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", rr.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp["error"] != models.ErrMissingCredentials.Error() {
			t.Errorf("Unexpected error message: %q", resp["error"])
		}
	})

	t.Run("invalid id gets 400", func(t *testing.T) {
		app, _ := newTestApplication(t, nil)

		rr := postJSON(t, app, "/discover/not-a-number", "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("returns the discovered track", func(t *testing.T) {
		app, database := newTestApplication(t, chartHandler(trackA))

		if err := database.UpsertCredentials(42, "alice", "secret"); err != nil {
			t.Fatalf("Failed to register user: %v", err)
		}

		rr := postJSON(t, app, "/discover/42", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Track *struct {
				Artist string `json:"artist"`
				Name   string `json:"name"`
			} `json:"track"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Track == nil || resp.Track.Artist != trackA.Artist || resp.Track.Name != trackA.Name {
			t.Errorf("Unexpected track in response: %+v", resp.Track)
		}
	})

	t.Run("already delivered today gets a null track", func(t *testing.T) {
		app, database := newTestApplication(t, chartHandler(trackA))

		if err := database.UpsertCredentials(42, "alice", "secret"); err != nil {
			t.Fatalf("Failed to register user: %v", err)
		}
		today := time.Now().UTC().Format(db.DateFormat)
		if err := database.RecordSeen(42, trackA, today); err != nil {
			t.Fatalf("Failed to seed ledger: %v", err)
		}

		rr := postJSON(t, app, "/discover/42", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Track          *json.RawMessage `json:"track"`
			DeliveredToday bool             `json:"delivered_today"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Track != nil && string(*resp.Track) != "null" {
			t.Errorf("Expected null track, got %s", string(*resp.Track))
		}
		if !resp.DeliveredToday {
			t.Error("Expected delivered_today flag set")
		}
	})
}

func TestHealth(t *testing.T) {
	app, _ := newTestApplication(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	app.routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}

func TestEnsureDataDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "herald.db")

	if err := ensureDataDir(dbPath); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	info, err := os.Stat(filepath.Dir(dbPath))
	if err != nil {
		t.Fatalf("Expected directory created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}
