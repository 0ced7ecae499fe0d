package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides persistence and aggregation for file knowledge records.
type Store interface {
	// Upsert creates or replaces the record keyed by rec.Path. When the
	// stored content hash equals rec.ContentHash the write is a no-op and
	// the stored record is returned unchanged.
	Upsert(rec FileRecord) (Outcome, FileRecord, error)
	// Get returns the record for path. The bool is false when no record exists.
	Get(path string) (FileRecord, bool, error)
	// GetMany returns the records for the given paths, keyed by path.
	// Unknown paths are silently omitted.
	GetMany(paths []string) (map[string]FileRecord, error)
	// List returns records matching the filter, most recently indexed first.
	// limit <= 0 means no limit.
	List(filter ListFilter, limit int) ([]FileRecord, error)
	// DependencyEdges returns every record's declared dependency paths,
	// keyed by the record's own path.
	DependencyEdges() (map[string][]string, error)
	// Stats aggregates category counts over the full store.
	Stats() (Stats, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and initializes
// the schema. Transactions take the write lock at begin so the
// read-hash-then-write upsert is a single atomic unit under concurrency.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const recordColumns = "path, repo, file_type, technology, summary, key_elements, dependencies, tags, content_hash, indexed_at, created_at, metadata"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (FileRecord, error) {
	var rec FileRecord
	var fileType, technology, keyElements, dependencies, tags, metadata string
	err := row.Scan(
		&rec.Path, &rec.Repo, &fileType, &technology, &rec.Summary,
		&keyElements, &dependencies, &tags, &rec.ContentHash,
		&rec.IndexedAt, &rec.CreatedAt, &metadata,
	)
	if err != nil {
		return FileRecord{}, err
	}
	rec.FileType = FileType(fileType)
	rec.Technology = Technology(technology)
	if rec.KeyElements, err = decodeStrings(keyElements); err != nil {
		return FileRecord{}, fmt.Errorf("record %s: %w", rec.Path, err)
	}
	if rec.Dependencies, err = decodeStrings(dependencies); err != nil {
		return FileRecord{}, fmt.Errorf("record %s: %w", rec.Path, err)
	}
	if rec.Tags, err = decodeStrings(tags); err != nil {
		return FileRecord{}, fmt.Errorf("record %s: %w", rec.Path, err)
	}
	if rec.Metadata, err = decodeMetadata(metadata); err != nil {
		return FileRecord{}, fmt.Errorf("record %s: %w", rec.Path, err)
	}
	rec.IndexedAt = rec.IndexedAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (s *SQLiteStore) Upsert(rec FileRecord) (Outcome, FileRecord, error) {
	keyElements, err := encodeStrings(rec.KeyElements)
	if err != nil {
		return "", FileRecord{}, err
	}
	dependencies, err := encodeStrings(rec.Dependencies)
	if err != nil {
		return "", FileRecord{}, err
	}
	tags, err := encodeStrings(rec.Tags)
	if err != nil {
		return "", FileRecord{}, err
	}
	metadata, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return "", FileRecord{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", FileRecord{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var storedHash string
	err = tx.QueryRow("SELECT content_hash FROM files WHERE path = ?", rec.Path).Scan(&storedHash)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(
			"INSERT INTO files ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			rec.Path, rec.Repo, string(rec.FileType), string(rec.Technology), rec.Summary,
			keyElements, dependencies, tags, rec.ContentHash, now, now, metadata,
		)
		if err != nil {
			return "", FileRecord{}, fmt.Errorf("insert %s: %w", rec.Path, err)
		}
		if err := tx.Commit(); err != nil {
			return "", FileRecord{}, err
		}
		rec.IndexedAt = now
		rec.CreatedAt = now
		return OutcomeCreated, rec, nil

	case err != nil:
		return "", FileRecord{}, fmt.Errorf("lookup %s: %w", rec.Path, err)
	}

	if storedHash == rec.ContentHash {
		// Unchanged content — return the stored record without advancing indexed_at.
		stored, err := scanRecord(tx.QueryRow("SELECT "+recordColumns+" FROM files WHERE path = ?", rec.Path))
		if err != nil {
			return "", FileRecord{}, fmt.Errorf("reread %s: %w", rec.Path, err)
		}
		if err := tx.Commit(); err != nil {
			return "", FileRecord{}, err
		}
		return OutcomeUnchanged, stored, nil
	}

	_, err = tx.Exec(
		`UPDATE files SET repo = ?, file_type = ?, technology = ?, summary = ?,
		 key_elements = ?, dependencies = ?, tags = ?, content_hash = ?,
		 indexed_at = ?, metadata = ? WHERE path = ?`,
		rec.Repo, string(rec.FileType), string(rec.Technology), rec.Summary,
		keyElements, dependencies, tags, rec.ContentHash, now, metadata, rec.Path,
	)
	if err != nil {
		return "", FileRecord{}, fmt.Errorf("update %s: %w", rec.Path, err)
	}
	stored, err := scanRecord(tx.QueryRow("SELECT "+recordColumns+" FROM files WHERE path = ?", rec.Path))
	if err != nil {
		return "", FileRecord{}, fmt.Errorf("reread %s: %w", rec.Path, err)
	}
	if err := tx.Commit(); err != nil {
		return "", FileRecord{}, err
	}
	return OutcomeReplaced, stored, nil
}

func (s *SQLiteStore) Get(path string) (FileRecord, bool, error) {
	rec, err := scanRecord(s.db.QueryRow("SELECT "+recordColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) GetMany(paths []string) (map[string]FileRecord, error) {
	result := make(map[string]FileRecord, len(paths))
	if len(paths) == 0 {
		return result, nil
	}
	placeholders := strings.Repeat("?, ", len(paths)-1) + "?"
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}
	rows, err := s.db.Query("SELECT "+recordColumns+" FROM files WHERE path IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result[rec.Path] = rec
	}
	return result, rows.Err()
}

func (s *SQLiteStore) List(filter ListFilter, limit int) ([]FileRecord, error) {
	var where []string
	var args []any
	if filter.Repo != "" {
		where = append(where, "repo = ?")
		args = append(args, filter.Repo)
	}
	if filter.FileType != "" {
		where = append(where, "file_type = ?")
		args = append(args, string(filter.FileType))
	}
	if filter.Technology != "" {
		where = append(where, "technology = ?")
		args = append(args, string(filter.Technology))
	}

	query := "SELECT " + recordColumns + " FROM files"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY indexed_at DESC, path ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DependencyEdges() (map[string][]string, error) {
	rows, err := s.db.Query("SELECT path, dependencies FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make(map[string][]string)
	for rows.Next() {
		var path, raw string
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, err
		}
		deps, err := decodeStrings(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", path, err)
		}
		edges[path] = deps
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) Stats() (Stats, error) {
	stats := Stats{
		ByRepo:       make(map[string]int),
		ByFileType:   make(map[string]int),
		ByTechnology: make(map[string]int),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&stats.TotalFiles); err != nil {
		return Stats{}, err
	}

	groupInto := func(column string, dest map[string]int) error {
		rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM files GROUP BY " + column)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				return err
			}
			dest[key] = count
		}
		return rows.Err()
	}
	if err := groupInto("repo", stats.ByRepo); err != nil {
		return Stats{}, err
	}
	if err := groupInto("file_type", stats.ByFileType); err != nil {
		return Stats{}, err
	}
	if err := groupInto("technology", stats.ByTechnology); err != nil {
		return Stats{}, err
	}

	if err := s.db.QueryRow("SELECT COALESCE(SUM(json_array_length(dependencies)), 0) FROM files").Scan(&stats.TotalDependencies); err != nil {
		return Stats{}, err
	}

	var last time.Time
	err := s.db.QueryRow("SELECT indexed_at FROM files ORDER BY indexed_at DESC LIMIT 1").Scan(&last)
	switch {
	case err == sql.ErrNoRows:
		// empty store
	case err != nil:
		return Stats{}, err
	default:
		stats.LastIndexed = last.UTC()
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
