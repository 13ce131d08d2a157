package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// Store is the bot's persistent state: interactive controls, scheduled
// closures and cached reference data. Each method is an independent,
// short-lived unit of work.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS persistent_views (
        message_id TEXT PRIMARY KEY,
        channel_id TEXT NOT NULL,
        thread_id TEXT NOT NULL,
        view_type TEXT NOT NULL,
        post_owner_id TEXT,
        is_solved INTEGER NOT NULL DEFAULT 0,
        created_at INTEGER NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS pending_closes (
        thread_id TEXT PRIMARY KEY,
        close_at INTEGER NOT NULL,
        reason TEXT NOT NULL DEFAULT 'solved',
        created_at INTEGER NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS docs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        link TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS contributors (
        github_username TEXT NOT NULL,
        contributed_repo_name TEXT NOT NULL,
        UNIQUE (github_username, contributed_repo_name)
    );`,
	`CREATE TABLE IF NOT EXISTS verification_tokens (
        user_id TEXT PRIMARY KEY,
        token TEXT NOT NULL,
        expires_at INTEGER NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS autoresponses (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        regex TEXT NOT NULL,
        response TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS automod_rules (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        regex TEXT NOT NULL,
        reason TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS meta (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_persistent_views_thread ON persistent_views(thread_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contributors_username ON contributors(github_username COLLATE NOCASE);`,
}

// InitDB opens the store at dbPath, creating the file and its tables on
// first run.
func InitDB(dbPath string) (*Store, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Successfully connected to the database at", dbPath)
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	for _, query := range schema {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, query := range indexes {
		if _, err := db.Exec(query); err != nil {
			// Indexes only speed up lookups.
			log.Printf("Warning: failed to create index: %v", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
