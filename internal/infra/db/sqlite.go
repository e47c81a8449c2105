package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const animeSchema = `
CREATE TABLE IF NOT EXISTS anime (
	anime_id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	is_movie INTEGER NOT NULL DEFAULT 0,
	episodes TEXT NOT NULL DEFAULT '[]',
	added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// ConnectSQLite opens (creating if needed) the episode metadata database.
func ConnectSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	conn, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(animeSchema); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
