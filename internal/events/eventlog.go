// Package events provides the history of notable game actions.
// Ticks and clicks are too frequent to record; purchases, bonuses, resets, saves
// and tournament pours are.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeGameLoaded       EventType = "GAME_LOADED"
	EventTypeUpgradePurchased EventType = "UPGRADE_PURCHASED"
	EventTypePurchaseRejected EventType = "PURCHASE_REJECTED"
	EventTypeBonusClaimed     EventType = "BONUS_CLAIMED"
	EventTypeBonusRejected    EventType = "BONUS_REJECTED"
	EventTypeProgressReset    EventType = "PROGRESS_RESET"
	EventTypeSaveFailed       EventType = "SAVE_FAILED"

	EventTypePlayerJoined     EventType = "PLAYER_JOINED"
	EventTypeBeerDrunk        EventType = "BEER_DRUNK"
	EventTypeAttemptsBought   EventType = "ATTEMPTS_BOUGHT"
	EventTypeAttemptsGranted  EventType = "ATTEMPTS_GRANTED"
	EventTypePlayerStatsReset EventType = "PLAYER_STATS_RESET"
)

// UpgradePurchasedPayload is attached to UPGRADE_PURCHASED.
type UpgradePurchasedPayload struct {
	UpgradeID string  `json:"upgrade_id"`
	Level     int     `json:"level"`
	Cost      int64   `json:"cost"`
	Target    string  `json:"target"`
	NewRate   float64 `json:"new_rate"`
}

// PurchaseRejectedPayload is attached to PURCHASE_REJECTED.
type PurchaseRejectedPayload struct {
	UpgradeID string `json:"upgrade_id"`
	Cost      int64  `json:"cost"`
	Have      int64  `json:"have"`
}

// BonusClaimedPayload is attached to BONUS_CLAIMED.
type BonusClaimedPayload struct {
	Amount   int64   `json:"amount"`
	Currency float64 `json:"currency"`
}

// BonusRejectedPayload is attached to BONUS_REJECTED.
type BonusRejectedPayload struct {
	RemainingSeconds float64 `json:"remaining_seconds"`
	Countdown        string  `json:"countdown"`
}

// GameLoadedPayload is attached to GAME_LOADED.
type GameLoadedPayload struct {
	Restored  bool       `json:"restored"`  // A saved slot was applied
	Recovered bool       `json:"recovered"` // The slot was unreadable and defaults were used
	SavedAt   *time.Time `json:"saved_at,omitempty"`
}

// ProgressResetPayload is attached to PROGRESS_RESET.
type ProgressResetPayload struct {
	TotalEarned float64 `json:"total_earned"` // Lifetime earnings that were discarded
}

// SaveFailedPayload is attached to SAVE_FAILED.
type SaveFailedPayload struct {
	Error string `json:"error"`
}

// PlayerJoinedPayload is attached to PLAYER_JOINED.
type PlayerJoinedPayload struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
	ChatID   int64  `json:"chat_id"`
	Attempts int    `json:"attempts"`
}

// BeerDrunkPayload is attached to BEER_DRUNK.
type BeerDrunkPayload struct {
	PlayerID     int64 `json:"player_id"`
	AmountMl     int   `json:"amount_ml"`
	TotalMl      int64 `json:"total_ml"`
	AttemptsLeft int   `json:"attempts_left"`
}

// AttemptsBoughtPayload is attached to ATTEMPTS_BOUGHT.
type AttemptsBoughtPayload struct {
	PlayerID int64  `json:"player_id"`
	PackID   string `json:"pack_id"`
	Attempts int    `json:"attempts"`
	Stars    int    `json:"stars"`
}

// AttemptsGrantedPayload is attached to ATTEMPTS_GRANTED.
type AttemptsGrantedPayload struct {
	AdminID  int64 `json:"admin_id"`
	PlayerID int64 `json:"player_id"`
	Attempts int   `json:"attempts"`
}

// PlayerStatsResetPayload is attached to PLAYER_STATS_RESET.
type PlayerStatsResetPayload struct {
	AdminID   int64 `json:"admin_id"`
	PlayerID  int64 `json:"player_id"`
	DroppedMl int64 `json:"dropped_ml"`
}

// GameEvent is an immutable record of an action in the game.
type GameEvent struct {
	Seq       uint64      `json:"seq"` // Assigned by the log, strictly increasing
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"` // Which reaction produced it: click, tick, ws, api, autosave
	Payload   interface{} `json:"payload,omitempty"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is a bounded in-memory log of recent game events.
// Once full, the oldest event is dropped for every new one.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	capacity  int
	nextSeq   uint64
	persister EventPersister
	onError   func(error)
	closed    bool
	writes    sync.WaitGroup // In-flight persister writes
}

// NewEventLog creates an event log holding at most capacity events, with an optional persister.
func NewEventLog(capacity int, persister EventPersister) *EventLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventLog{
		events:    make([]GameEvent, 0, capacity),
		capacity:  capacity,
		nextSeq:   1,
		persister: persister,
	}
}

// OnPersistError registers a callback for persister failures.
func (el *EventLog) OnPersistError(fn func(error)) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append stamps the event with a sequence number (and an ID and timestamp when missing) and stores it.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	event.Seq = el.nextSeq
	el.nextSeq++
	if len(el.events) == el.capacity {
		copy(el.events, el.events[1:])
		el.events = el.events[:len(el.events)-1]
	}
	el.events = append(el.events, event)
	persister, onError := el.persister, el.onError
	if el.closed {
		persister = nil
	}
	if persister != nil {
		el.writes.Add(1)
	}
	el.mu.Unlock()

	if persister != nil {
		// Write through to persistent storage off the caller's path.
		go func(e GameEvent) {
			defer el.writes.Done()
			if err := persister.Append(e); err != nil && onError != nil {
				onError(err)
			}
		}(event)
	}
	return event
}

// Close waits for in-flight persister writes. Events appended afterwards are
// kept in memory only, so the persister's storage can be released once Close returns.
func (el *EventLog) Close() {
	el.mu.Lock()
	el.closed = true
	el.mu.Unlock()
	el.writes.Wait()
}

// Since returns the retained events with a sequence number greater than seq, oldest first.
func (el *EventLog) Since(seq uint64) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Seq > seq {
			result = append(result, e)
		}
	}
	return result
}

// Recent returns up to n of the newest events, oldest first.
func (el *EventLog) Recent(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if n <= 0 || n > len(el.events) {
		n = len(el.events)
	}
	out := make([]GameEvent, n)
	copy(out, el.events[len(el.events)-n:])
	return out
}

// GetByType returns the retained events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastSeq is the sequence number of the newest event, or 0.
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq - 1
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
