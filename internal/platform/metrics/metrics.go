// Package metrics provides observability for the beer server.
// Counters are exposed as JSON on /metrics and in Prometheus text format.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Player actions
	Clicks            int64
	PurchasesOK       int64
	PurchasesRejected int64
	BonusClaimed      int64
	BonusRejected     int64
	Resets            int64

	// Tournament
	Drinks         int64
	DrunkMl        int64
	DrinksRejected int64
	PacksSold      int64

	// Save metrics
	Saves       int64
	SaveLatSum  int64
	SaveLatMax  int64
	SaveErrors  int64
	LastSavedAt time.Time

	// Event persistence
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	WSRateLimited       int64

	// Economy gauges, refreshed on every tick
	Currency    float64
	PerSecond   float64
	TotalEarned float64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New returns an empty collector. Tests use their own instead of the global one.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	// Update max (non-atomic but acceptable for metrics)
	if v > atomic.LoadInt64(addr) {
		atomic.StoreInt64(addr, v)
	}
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEconomy updates the economy gauges.
func (c *Collector) RecordEconomy(currency, perSecond, totalEarned float64) {
	c.mu.Lock()
	c.Currency = currency
	c.PerSecond = perSecond
	c.TotalEarned = totalEarned
	c.mu.Unlock()
}

func (c *Collector) RecordClick() {
	atomic.AddInt64(&c.Clicks, 1)
}

// RecordPurchase records a purchase attempt.
func (c *Collector) RecordPurchase(ok bool) {
	if ok {
		atomic.AddInt64(&c.PurchasesOK, 1)
	} else {
		atomic.AddInt64(&c.PurchasesRejected, 1)
	}
}

// RecordBonus records a bonus claim attempt.
func (c *Collector) RecordBonus(ok bool) {
	if ok {
		atomic.AddInt64(&c.BonusClaimed, 1)
	} else {
		atomic.AddInt64(&c.BonusRejected, 1)
	}
}

func (c *Collector) RecordReset() {
	atomic.AddInt64(&c.Resets, 1)
}

// RecordDrink records a tournament pour; ml is zero when the player had no attempts.
func (c *Collector) RecordDrink(ml int) {
	if ml <= 0 {
		atomic.AddInt64(&c.DrinksRejected, 1)
		return
	}
	atomic.AddInt64(&c.Drinks, 1)
	atomic.AddInt64(&c.DrunkMl, int64(ml))
}

func (c *Collector) RecordPackSold() {
	atomic.AddInt64(&c.PacksSold, 1)
}

// RecordSave records a snapshot write to the save slot.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.Saves, 1)
	atomic.AddInt64(&c.SaveLatSum, int64(latency))
	storeMax(&c.SaveLatMax, int64(latency))

	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
		return
	}
	c.mu.Lock()
	c.LastSavedAt = time.Now()
	c.mu.Unlock()
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordWSRateLimited records an action dropped by the per-connection limiter.
func (c *Collector) RecordWSRateLimited() {
	atomic.AddInt64(&c.WSRateLimited, 1)
}

func avgMillis(sum, n int64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 1e6
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saves := atomic.LoadInt64(&c.Saves)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	lastSave := ""
	if !c.LastSavedAt.IsZero() {
		lastSave = c.LastSavedAt.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": avgMillis(atomic.LoadInt64(&c.TickLatencySum), tickCount),
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"actions": map[string]interface{}{
			"clicks":             atomic.LoadInt64(&c.Clicks),
			"purchases":          atomic.LoadInt64(&c.PurchasesOK),
			"purchases_rejected": atomic.LoadInt64(&c.PurchasesRejected),
			"bonus_claimed":      atomic.LoadInt64(&c.BonusClaimed),
			"bonus_rejected":     atomic.LoadInt64(&c.BonusRejected),
			"resets":             atomic.LoadInt64(&c.Resets),
		},

		"tournament": map[string]interface{}{
			"drinks":          atomic.LoadInt64(&c.Drinks),
			"drunk_ml":        atomic.LoadInt64(&c.DrunkMl),
			"drinks_rejected": atomic.LoadInt64(&c.DrinksRejected),
			"packs_sold":      atomic.LoadInt64(&c.PacksSold),
		},

		"saves": map[string]interface{}{
			"count":          saves,
			"errors":         atomic.LoadInt64(&c.SaveErrors),
			"avg_latency_ms": avgMillis(atomic.LoadInt64(&c.SaveLatSum), saves),
			"max_latency_ms": float64(atomic.LoadInt64(&c.SaveLatMax)) / 1e6,
			"last_saved":     lastSave,
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": avgMillis(atomic.LoadInt64(&c.EventWriteLatSum), eventsWritten),
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"rate_limited":       atomic.LoadInt64(&c.WSRateLimited),
		},

		"economy": map[string]interface{}{
			"currency":     c.Currency,
			"per_second":   c.PerSecond,
			"total_earned": c.TotalEarned,
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// Handler serves the global collector as JSON.
func Handler() http.HandlerFunc {
	return collector.Handler()
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value interface{}) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(w, "%s %.4f\n\n", name, v)
	default:
		fmt.Fprintf(w, "%s %v\n\n", name, v)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Tick metrics
		writeMetric(w, "beer_tick_count", "counter", "Total tick cycles", atomic.LoadInt64(&c.TickCount))
		writeMetric(w, "beer_tick_latency_max_ms", "gauge", "Maximum tick latency", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		// Player actions
		writeMetric(w, "beer_clicks_total", "counter", "Total clicks", atomic.LoadInt64(&c.Clicks))

		fmt.Fprintf(w, "# HELP beer_purchases_total Upgrade purchase attempts\n")
		fmt.Fprintf(w, "# TYPE beer_purchases_total counter\n")
		fmt.Fprintf(w, "beer_purchases_total{result=\"ok\"} %d\n", atomic.LoadInt64(&c.PurchasesOK))
		fmt.Fprintf(w, "beer_purchases_total{result=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.PurchasesRejected))

		fmt.Fprintf(w, "# HELP beer_bonus_total Bonus claim attempts\n")
		fmt.Fprintf(w, "# TYPE beer_bonus_total counter\n")
		fmt.Fprintf(w, "beer_bonus_total{result=\"ok\"} %d\n", atomic.LoadInt64(&c.BonusClaimed))
		fmt.Fprintf(w, "beer_bonus_total{result=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.BonusRejected))

		writeMetric(w, "beer_resets_total", "counter", "Progress resets", atomic.LoadInt64(&c.Resets))

		// Tournament
		writeMetric(w, "beer_tournament_drinks_total", "counter", "Tournament pours", atomic.LoadInt64(&c.Drinks))
		writeMetric(w, "beer_tournament_drunk_ml_total", "counter", "Millilitres poured in the tournament", atomic.LoadInt64(&c.DrunkMl))
		writeMetric(w, "beer_tournament_packs_sold_total", "counter", "Attempt packs sold", atomic.LoadInt64(&c.PacksSold))

		// Save metrics
		writeMetric(w, "beer_saves_total", "counter", "Snapshot writes", atomic.LoadInt64(&c.Saves))
		writeMetric(w, "beer_save_errors_total", "counter", "Failed snapshot writes", atomic.LoadInt64(&c.SaveErrors))
		writeMetric(w, "beer_save_latency_max_ms", "gauge", "Maximum save latency", float64(atomic.LoadInt64(&c.SaveLatMax))/1e6)

		// Event metrics
		writeMetric(w, "beer_events_written", "counter", "Total events written", atomic.LoadInt64(&c.EventsWritten))
		writeMetric(w, "beer_event_write_errors", "counter", "Total event write errors", atomic.LoadInt64(&c.EventWriteErrors))

		// WebSocket metrics
		writeMetric(w, "beer_ws_connections", "gauge", "Active WebSocket connections", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP beer_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE beer_ws_messages_total counter\n")
		fmt.Fprintf(w, "beer_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "beer_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		writeMetric(w, "beer_ws_rate_limited_total", "counter", "Actions dropped by the rate limiter", atomic.LoadInt64(&c.WSRateLimited))

		// Economy
		c.mu.RLock()
		currency, perSecond, total := c.Currency, c.PerSecond, c.TotalEarned
		c.mu.RUnlock()
		writeMetric(w, "beer_currency", "gauge", "Current beer balance", currency)
		writeMetric(w, "beer_per_second", "gauge", "Passive income per second", perSecond)
		writeMetric(w, "beer_total_earned", "counter", "Lifetime beer earned", total)
	}
}

// PrometheusHandler serves the global collector in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return collector.PrometheusHandler()
}
