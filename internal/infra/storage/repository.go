// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrSlotEmpty is returned by SlotStore.Read when nothing was saved under the key.
var ErrSlotEmpty = errors.New("save slot is empty")

// SlotStore is a key-value slot holding one serialized save per key.
// Write overwrites any previous value.
type SlotStore interface {
	// Read returns the stored value or ErrSlotEmpty.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores value under key, replacing what was there.
	Write(ctx context.Context, key string, value []byte) error

	// Delete clears the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, key string) error
}

// EventRecord mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type EventRecord struct {
	ID        string    `json:"id" db:"id"`
	Seq       uint64    `json:"seq" db:"seq"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	EventType string    `json:"event_type" db:"event_type"`
	Source    string    `json:"source" db:"source"`
	Payload   []byte    `json:"payload" db:"payload"` // Raw JSON
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the history.
	Append(ctx context.Context, event EventRecord) error

	// Recent returns up to limit of the newest events, oldest first.
	Recent(ctx context.Context, limit int) ([]EventRecord, error)
}
