package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/justinas/alice"

	"github.com/herald-fm/herald/db"
	"github.com/herald-fm/herald/models"
	"github.com/herald-fm/herald/service/discovery"
	"github.com/herald-fm/herald/service/lastfm"
)

type application struct {
	logger    *log.Logger
	db        *db.DB
	discovery *discovery.Service
}

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", app.health)
	mux.HandleFunc("POST /register", app.register)
	mux.HandleFunc("POST /discover/{id}", app.discoverNow)

	standard := alice.New(app.recoverPanic, app.logRequest, commonHeaders)

	return standard.Then(mux)
}

// jsonResponse returns a JSON response
func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func jsonError(w http.ResponseWriter, message string, statusCode int) {
	jsonResponse(w, statusCode, map[string]string{"error": message})
}

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	if err := app.db.Ping(); err != nil {
		jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// register stores or replaces a user's Last.fm credentials. This is the
// programmatic stand-in for the interactive credential-entry UI.
func (app *application) register(w http.ResponseWriter, r *http.Request) {
	var reqBody struct {
		DiscordID   int64  `json:"discord_id"`
		LFMUsername string `json:"lfm_username"`
		LFMAPIKey   string `json:"lfm_api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if reqBody.DiscordID == 0 || reqBody.LFMUsername == "" || reqBody.LFMAPIKey == "" {
		jsonError(w, "discord_id, lfm_username and lfm_api_key are required", http.StatusBadRequest)
		return
	}

	if err := app.db.UpsertCredentials(reqBody.DiscordID, reqBody.LFMUsername, reqBody.LFMAPIKey); err != nil {
		app.logger.Printf("Error saving credentials for %d: %v", reqBody.DiscordID, err)
		jsonError(w, "failed to save credentials", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Credentials saved"})
}

// discoverNow triggers discovery for one user outside the daily sweep. The
// daily cap still applies: a user already served today gets a null track.
func (app *application) discoverNow(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid user id", http.StatusBadRequest)
		return
	}

	creds, err := app.db.GetCredentials(userID)
	if err != nil {
		app.logger.Printf("Error loading credentials for %d: %v", userID, err)
		jsonError(w, "failed to load credentials", http.StatusInternalServerError)
		return
	}
	if creds == nil {
		jsonError(w, models.ErrMissingCredentials.Error(), http.StatusUnprocessableEntity)
		return
	}

	today := time.Now().UTC().Format(db.DateFormat)
	done, err := app.db.DeliveredOn(userID, today)
	if err != nil {
		app.logger.Printf("Error checking delivery date for %d: %v", userID, err)
		jsonError(w, "failed to check delivery state", http.StatusInternalServerError)
		return
	}
	if done {
		jsonResponse(w, http.StatusOK, map[string]any{"track": nil, "delivered_today": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	session := &http.Client{Timeout: 15 * time.Second}
	defer session.CloseIdleConnections()

	track, err := app.discovery.Discover(ctx, session, creds)
	if err != nil {
		var apiErr *lastfm.APIError
		if errors.As(err, &apiErr) {
			jsonError(w, apiErr.Error(), http.StatusBadGateway)
			return
		}
		app.logger.Printf("Error discovering track for %d: %v", userID, err)
		jsonError(w, "discovery failed", http.StatusInternalServerError)
		return
	}
	if track == nil {
		jsonResponse(w, http.StatusOK, map[string]any{"track": nil})
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"track": map[string]string{"artist": track.Artist, "name": track.Name},
	})
}
