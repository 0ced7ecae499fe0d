package store

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS files (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    path         TEXT NOT NULL UNIQUE,
    repo         TEXT NOT NULL,
    file_type    TEXT NOT NULL,
    technology   TEXT NOT NULL,
    summary      TEXT NOT NULL,
    key_elements TEXT NOT NULL DEFAULT '[]',
    dependencies TEXT NOT NULL DEFAULT '[]',
    tags         TEXT NOT NULL DEFAULT '[]',
    content_hash TEXT NOT NULL,
    indexed_at   DATETIME NOT NULL,
    created_at   DATETIME NOT NULL,
    metadata     TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_files_repo_filetype ON files(repo, file_type);
CREATE INDEX IF NOT EXISTS idx_files_technology ON files(technology);
CREATE INDEX IF NOT EXISTS idx_files_indexed_at ON files(indexed_at);
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
