package store

import "database/sql"

const schemaVersion = "1"

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS documents (
    seq        INTEGER PRIMARY KEY,
    content    TEXT NOT NULL,
    file_path  TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL,
    kind       TEXT NOT NULL DEFAULT '',
    name       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS embeddings (
    seq    INTEGER PRIMARY KEY REFERENCES documents(seq),
    vector BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// initSchema creates the tables if they don't exist.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
