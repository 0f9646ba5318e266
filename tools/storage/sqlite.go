package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecordStore persists records in a local SQLite database. One generic
// table keyed by (collection, id) keeps the tool layer free of per-record
// schemas.
type SQLiteRecordStore struct {
	db *sql.DB
}

func NewSQLiteRecordStore(dbPath string) (*SQLiteRecordStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteRecordStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRecordStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS records (
        collection TEXT NOT NULL,
        id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        at DATETIME NOT NULL,
        data TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        PRIMARY KEY (collection, id)
    );

    CREATE INDEX IF NOT EXISTS idx_records_user ON records(collection, user_id, at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteRecordStore) Insert(ctx context.Context, collection string, rec Record) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, user_id, at, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		collection, rec.ID, rec.UserID, rec.At.UTC(), string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *SQLiteRecordStore) Get(ctx context.Context, collection, id, userID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, at, data FROM records WHERE collection = ? AND id = ? AND user_id = ?`,
		collection, id, userID)

	var rec Record
	var data string
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.At, &data); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to read record: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record data: %w", err)
	}
	return rec, nil
}
