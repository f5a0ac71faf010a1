package engine

import (
	"context"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
)

func (e *Engine) autosaveTick(ctx context.Context) {
	e.Save(ctx)
}

// Save writes the current state to the slot, overwriting the previous save.
// Store failures are logged, counted and recorded as SAVE_FAILED; they never reach the caller.
func (e *Engine) Save(ctx context.Context) {
	if e.cfg.SaveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SaveTimeout)
		defer cancel()
	}

	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	state := e.Snapshot()
	data, err := storage.EncodeSnapshot(state, e.clock.Now())
	if err != nil {
		e.saveFailed(ctx, 0, err)
		return
	}

	start := time.Now()
	err = e.store.Write(ctx, e.slotKey, data)
	latency := time.Since(start)
	if err != nil {
		e.saveFailed(ctx, latency, err)
		return
	}
	e.metrics.RecordSave(latency, nil)
}

func (e *Engine) saveFailed(ctx context.Context, latency time.Duration, err error) {
	e.metrics.RecordSave(latency, err)
	e.logger.Errorf("Failed to save game to slot %q: %v", e.slotKey, err)
	e.record(ctx, events.EventTypeSaveFailed, events.SaveFailedPayload{Error: err.Error()})
}
