package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// DateFormat is how calendar days are stored in the tracks table. It matches
// sqlite's date('now') output, so the layout is a durable contract with any
// existing data.
const DateFormat = "2006-01-02"

// DB is a wrapper around sql.DB
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Initialize sets up the database tables. The schema must stay exactly as
// below: deployments interoperate with databases written by earlier versions.
func (db *DB) Initialize() error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		discord_id INTEGER PRIMARY KEY,
		lfm_username TEXT NOT NULL,
		lfm_api_key TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS tracks (
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		track_artist TEXT NOT NULL,
		track_name TEXT NOT NULL,
		PRIMARY KEY (user_id, track_artist, track_name)
	)`)
	if err != nil {
		return err
	}

	return nil
}
