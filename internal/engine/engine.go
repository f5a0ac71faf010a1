// Package engine owns the single authoritative game state and serializes
// every reaction to it: clicks, purchases, bonus claims, ticks and saves.
//
// ARCHITECTURAL RULE: state is only touched while holding the engine lock.
// Notifications, event appends and store I/O happen after it is released.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/clock"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

// ErrEngineStopped is returned by actions after Stop.
var ErrEngineStopped = errors.New("engine stopped")

// Deps are the collaborators of an Engine. Only Store is required in practice;
// the rest fall back to quiet defaults.
type Deps struct {
	Config   config.EngineConfig
	SlotKey  string
	Store    storage.SlotStore
	Clock    clock.Clock
	Notifier notify.Notifier
	Events   *events.EventLog
	Logger   *logger.Logger
	Metrics  *metrics.Collector
}

// Engine is the central orchestrator of the beer economy.
type Engine struct {
	mu      sync.Mutex
	state   economy.State
	started bool
	stopped bool

	// saveMu orders slot writes against Reset's delete.
	saveMu sync.Mutex

	cfg      config.EngineConfig
	slotKey  string
	store    storage.SlotStore
	clock    clock.Clock
	notifier notify.Notifier
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector

	ticker   *Ticker
	autosave *Ticker
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New builds an engine holding the default state. Call Load to restore a save.
func New(d Deps) *Engine {
	if d.Config.TickInterval <= 0 {
		d.Config.TickInterval = config.Default().Engine.TickInterval
	}
	if d.Config.AutosaveInterval <= 0 {
		d.Config.AutosaveInterval = config.Default().Engine.AutosaveInterval
	}
	if d.SlotKey == "" {
		d.SlotKey = config.Default().Storage.SlotKey
	}
	if d.Store == nil {
		d.Store = storage.NewMemorySlotStore()
	}
	if d.Clock == nil {
		d.Clock = clock.RealClock{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Discard
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Get()
	}

	e := &Engine{
		state:    economy.NewState(),
		cfg:      d.Config,
		slotKey:  d.SlotKey,
		store:    d.Store,
		clock:    d.Clock,
		notifier: d.Notifier,
		eventLog: d.Events,
		logger:   d.Logger,
		metrics:  d.Metrics,
	}
	e.ticker = NewTicker("Income", e.cfg.TickInterval, func(context.Context) { e.Tick() }, e.logger)
	e.autosave = NewTicker("Autosave", e.cfg.AutosaveInterval, e.autosaveTick, e.logger)
	return e
}

// LoadResult describes what Load found in the save slot.
type LoadResult struct {
	Restored  bool      // The saved state was applied
	Recovered bool      // The slot was unreadable or corrupt; defaults are in use
	SavedAt   time.Time // When the applied snapshot was written, if known
}

// Load restores the state from the save slot. Missing or corrupt data
// leaves the exact defaults in place; slot content never fails startup.
func (e *Engine) Load(ctx context.Context) LoadResult {
	var res LoadResult
	state := economy.NewState()

	data, err := e.store.Read(ctx, e.slotKey)
	switch {
	case errors.Is(err, storage.ErrSlotEmpty):
		e.logger.Info("No saved game found. Starting fresh.")
	case err != nil:
		e.logger.Warnf("Save slot %q unreadable, starting fresh: %v", e.slotKey, err)
		res.Recovered = true
	default:
		decoded, savedAt, decErr := storage.DecodeSnapshot(data)
		if decErr != nil {
			e.logger.Warnf("Save slot %q corrupt, starting fresh: %v", e.slotKey, decErr)
			res.Recovered = true
			break
		}
		state = decoded
		res.Restored = true
		res.SavedAt = savedAt
		e.logger.Infof("Restored saved game (%d beers, %.0f/s).", decoded.DisplayCurrency(), decoded.PerSecond)
	}

	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
	e.metrics.RecordEconomy(state.Currency, state.PerSecond, state.TotalEarned)

	payload := events.GameLoadedPayload{Restored: res.Restored, Recovered: res.Recovered}
	if !res.SavedAt.IsZero() {
		at := res.SavedAt
		payload.SavedAt = &at
	}
	e.record(ctx, events.EventTypeGameLoaded, payload)
	return res
}

// Start launches the income ticker and the autosave loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	e.logger.Info("Starting beer engine...")
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.ticker.Start(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.autosave.Start(WithSource(runCtx, SourceAutosave))
	}()
	return nil
}

// Stop halts both loops, waits for them, and writes a final save.
// After Stop returns no tick mutates state and actions fail with ErrEngineStopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	e.Save(WithSource(context.Background(), SourceShutdown))
	e.logger.Info("Beer engine stopped.")
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Tick applies one accrual step of PerSecond scaled to the tick interval.
// It returns the amount credited, zero after Stop.
func (e *Engine) Tick() float64 {
	start := time.Now()

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return 0
	}
	gained := e.state.Accrue(e.cfg.TickInterval.Seconds())
	currency, perSecond, total := e.state.Currency, e.state.PerSecond, e.state.TotalEarned
	e.mu.Unlock()

	e.metrics.RecordTick(time.Since(start))
	e.metrics.RecordEconomy(currency, perSecond, total)
	return gained
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() economy.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Now is the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// record appends a domain event if an event log is attached.
func (e *Engine) record(ctx context.Context, t events.EventType, payload interface{}) {
	if e.eventLog == nil {
		return
	}
	e.eventLog.Append(events.GameEvent{
		Timestamp: e.clock.Now(),
		Type:      t,
		Source:    SourceFrom(ctx),
		Payload:   payload,
	})
}
