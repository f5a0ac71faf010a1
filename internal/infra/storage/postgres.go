// Package storage - postgres.go
// PostgreSQL implementation of SlotStore and EventRepository.
// The tournament tables share the pool through NewPostgresPlayerStore.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// InitPostgres opens a PostgreSQL pool through pgx and creates the schemas.
func InitPostgres(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if err := createSchemas(db, postgresSchemas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return db, nil
}

var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS save_slots (
		slot_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS event_log (
		id TEXT PRIMARY KEY,
		seq BIGINT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		event_type TEXT NOT NULL,
		source TEXT NOT NULL,
		payload JSONB NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_timestamp ON event_log(timestamp);`,
	`CREATE TABLE IF NOT EXISTS players (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		chat_id BIGINT NOT NULL,
		attempts INTEGER NOT NULL,
		total_ml BIGINT NOT NULL DEFAULT 0,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		joined_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_players_chat_total ON players(chat_id, total_ml DESC);`,
	`CREATE TABLE IF NOT EXISTS beer_drinks (
		id BIGSERIAL PRIMARY KEY,
		player_id BIGINT NOT NULL REFERENCES players(id),
		amount_ml INTEGER NOT NULL,
		drunk_at TIMESTAMPTZ NOT NULL
	);`,
}

// PostgresSlotStore implements SlotStore using PostgreSQL.
type PostgresSlotStore struct {
	db *sql.DB
}

// NewPostgresSlotStore creates a new PostgreSQL slot store.
func NewPostgresSlotStore(db *sql.DB) *PostgresSlotStore {
	return &PostgresSlotStore{db: db}
}

// Read fetches the payload stored under key.
func (r *PostgresSlotStore) Read(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM save_slots WHERE slot_key = $1`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return []byte(payload), nil
}

// Write upserts the payload for key.
func (r *PostgresSlotStore) Write(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO save_slots (slot_key, payload, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			saved_at = EXCLUDED.saved_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

// Delete clears the slot.
func (r *PostgresSlotStore) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM save_slots WHERE slot_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete slot %q: %w", key, err)
	}
	return nil
}

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Append inserts a new event into the ledger.
func (r *PostgresEventRepository) Append(ctx context.Context, event EventRecord) error {
	query := `
		INSERT INTO event_log (id, seq, timestamp, event_type, source, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		int64(event.Seq),
		event.Timestamp,
		event.EventType,
		event.Source,
		string(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent retrieves the newest events, oldest first.
func (r *PostgresEventRepository) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	query := `
		SELECT id, seq, timestamp, event_type, source, payload
		FROM event_log
		ORDER BY timestamp DESC, seq DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var e EventRecord
		var seq int64
		var payload string
		if err := rows.Scan(&e.ID, &seq, &e.Timestamp, &e.EventType, &e.Source, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Payload = []byte(payload)
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(records)
	return records, nil
}

// Ensure the Postgres types implement the storage interfaces
var (
	_ SlotStore       = (*PostgresSlotStore)(nil)
	_ EventRepository = (*PostgresEventRepository)(nil)
)
