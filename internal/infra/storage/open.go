package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
)

// Backend is an opened storage driver.
// Events is nil for drivers without an event table, Players for drivers
// that cannot host the tournament.
type Backend struct {
	Driver  string
	Slots   SlotStore
	Events  EventRepository
	Players PlayerStore

	closeFn func() error
}

// Close releases the underlying connection, if any.
func (b *Backend) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// Opener builds a Backend for one driver.
type Opener func(ctx context.Context, cfg config.StorageConfig) (*Backend, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{
		config.DriverSQLite:   openSQLite,
		config.DriverPostgres: openPostgres,
		config.DriverMemory:   openMemory,
	}
)

// Register makes a driver available to Open. Packages outside storage
// (the Redis cache) register themselves from init.
func Register(driver string, open Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[driver] = open
}

// NewBackend wraps stores into a Backend for Opener implementations.
func NewBackend(driver string, slots SlotStore, events EventRepository, closeFn func() error) *Backend {
	return &Backend{Driver: driver, Slots: slots, Events: events, closeFn: closeFn}
}

// Open picks the storage implementation by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	openersMu.RLock()
	open, ok := openers[cfg.Driver]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return open(ctx, cfg)
}

func openSQLite(_ context.Context, cfg config.StorageConfig) (*Backend, error) {
	db, err := InitSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	b := sqlBackend(config.DriverSQLite, db, NewSQLiteSlotStore(db), NewSQLiteEventRepository(db))
	b.Players = NewSQLitePlayerStore(db)
	return b, nil
}

func openPostgres(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	db, err := InitPostgres(ctx, cfg.PostgresDSN, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}
	b := sqlBackend(config.DriverPostgres, db, NewPostgresSlotStore(db), NewPostgresEventRepository(db))
	b.Players = NewPostgresPlayerStore(db)
	return b, nil
}

func openMemory(_ context.Context, _ config.StorageConfig) (*Backend, error) {
	b := NewBackend(config.DriverMemory, NewMemorySlotStore(), nil, nil)
	b.Players = NewMemoryPlayerStore()
	return b, nil
}

func sqlBackend(driver string, db *sql.DB, slots SlotStore, events EventRepository) *Backend {
	return NewBackend(driver, slots, events, db.Close)
}
