package db

import (
	"database/sql"
	"fmt"

	"github.com/herald-fm/herald/models"
)

// SeenTracks loads the full membership set of tracks already delivered to a
// user. One query per discovery call; candidates are then tested against the
// in-memory set instead of a round-trip per track.
func (db *DB) SeenTracks(discordID int64) (map[models.Track]struct{}, error) {
	rows, err := db.Query(`
	SELECT track_artist, track_name
	FROM tracks
	WHERE user_id = ?`, discordID)

	if err != nil {
		return nil, fmt.Errorf("failed to load seen tracks for %d: %w", discordID, err)
	}
	defer rows.Close()

	seen := make(map[models.Track]struct{})

	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.Artist, &t.Name); err != nil {
			return nil, err
		}
		seen[t] = struct{}{}
	}

	return seen, rows.Err()
}

// RecordSeen marks a track as delivered to a user on the given calendar day
// (DateFormat layout). The primary key on (user_id, track_artist, track_name)
// makes a second insert for the same track fail, so a track is recorded at
// most once ever.
func (db *DB) RecordSeen(discordID int64, track models.Track, date string) error {
	_, err := db.Exec(`
	INSERT INTO tracks (user_id, date, track_artist, track_name)
	VALUES (?, ?, ?, ?)`, discordID, date, track.Artist, track.Name)

	if err != nil {
		return fmt.Errorf("failed to record track %q by %q for %d: %w",
			track.Name, track.Artist, discordID, err)
	}

	return nil
}

// DeliveredOn reports whether the user already had a track recorded on the
// given calendar day. The scheduler uses this to skip users on re-runs after
// a restart mid-sweep.
func (db *DB) DeliveredOn(discordID int64, date string) (bool, error) {
	var one int

	err := db.QueryRow(`
	SELECT 1 FROM tracks
	WHERE user_id = ? AND date = ?
	LIMIT 1`, discordID, date).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check delivery date for %d: %w", discordID, err)
	}
	return true, nil
}
