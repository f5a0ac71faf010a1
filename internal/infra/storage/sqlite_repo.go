package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteSlotStore implements SlotStore for SQLite.
type SQLiteSlotStore struct {
	db *sql.DB
}

func NewSQLiteSlotStore(db *sql.DB) *SQLiteSlotStore {
	return &SQLiteSlotStore{db: db}
}

func (r *SQLiteSlotStore) Read(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT payload FROM save_slots WHERE slot_key = ?`
	var payload string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return []byte(payload), nil
}

func (r *SQLiteSlotStore) Write(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO save_slots (slot_key, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot_key) DO UPDATE SET
			payload=excluded.payload,
			saved_at=excluded.saved_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteSlotStore) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM save_slots WHERE slot_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete slot %q: %w", key, err)
	}
	return nil
}

// ---------------------------------------------------------
// SQLiteEventRepository
// ---------------------------------------------------------

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event EventRecord) error {
	query := `
		INSERT INTO events (id, seq, timestamp, event_type, source, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, int64(event.Seq), event.Timestamp.UTC(), event.EventType, event.Source, string(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]EventRecord, error) {
	query := `SELECT id, seq, timestamp, event_type, source, payload FROM events ORDER BY timestamp DESC, seq DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var e EventRecord
		var seq int64
		var payloadStr string
		if err := rows.Scan(&e.ID, &seq, &e.Timestamp, &e.EventType, &e.Source, &payloadStr); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Payload = []byte(payloadStr)
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(records)
	return records, nil
}

func reverse(records []EventRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

var (
	_ SlotStore       = (*SQLiteSlotStore)(nil)
	_ EventRepository = (*SQLiteEventRepository)(nil)
)
