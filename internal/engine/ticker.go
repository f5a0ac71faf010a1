package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
)

// Ticker calls fn once per interval until stopped.
// Missed fires are dropped by time.Ticker, never backfilled.
type Ticker struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
	logger   *logger.Logger
	fired    int64
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a ticker. It does nothing until Start.
func NewTicker(name string, interval time.Duration, fn func(ctx context.Context), log *logger.Logger) *Ticker {
	return &Ticker{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start runs the loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Infof("%s ticker started (every %s)", t.name, t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Infof("%s ticker stopped by context.", t.name)
			return
		case <-t.stopChan:
			t.logger.Infof("%s ticker stopped manually.", t.name)
			return
		case <-ticker.C:
			atomic.AddInt64(&t.fired, 1)
			t.fn(ctx)
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// Fired returns how many times fn has been called.
func (t *Ticker) Fired() int64 {
	return atomic.LoadInt64(&t.fired)
}
