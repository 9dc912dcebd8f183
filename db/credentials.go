package db

import (
	"database/sql"
	"fmt"

	"github.com/herald-fm/herald/models"
)

// GetCredentials retrieves a user's Last.fm credentials. Returns nil, nil
// when the user never registered.
func (db *DB) GetCredentials(discordID int64) (*models.Credentials, error) {
	creds := &models.Credentials{DiscordID: discordID}

	err := db.QueryRow(`
	SELECT lfm_username, lfm_api_key
	FROM users WHERE discord_id = ?`, discordID).Scan(&creds.Username, &creds.APIKey)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load credentials for %d: %w", discordID, err)
	}

	return creds, nil
}

// UpsertCredentials stores or replaces a user's Last.fm credentials.
// Re-registering overwrites the previous record atomically.
func (db *DB) UpsertCredentials(discordID int64, username, apiKey string) error {
	_, err := db.Exec(`
	INSERT OR REPLACE INTO users (discord_id, lfm_username, lfm_api_key)
	VALUES (?, ?, ?)`, discordID, username, apiKey)

	if err != nil {
		return fmt.Errorf("failed to upsert credentials for %d: %w", discordID, err)
	}

	return nil
}

// ListCredentials enumerates every registered user for the daily sweep.
func (db *DB) ListCredentials() ([]*models.Credentials, error) {
	rows, err := db.Query(`
	SELECT discord_id, lfm_username, lfm_api_key
	FROM users
	ORDER BY discord_id`)

	if err != nil {
		return nil, fmt.Errorf("failed to list registered users: %w", err)
	}
	defer rows.Close()

	var users []*models.Credentials

	for rows.Next() {
		creds := &models.Credentials{}
		if err := rows.Scan(&creds.DiscordID, &creds.Username, &creds.APIKey); err != nil {
			return nil, err
		}
		users = append(users, creds)
	}

	return users, rows.Err()
}
