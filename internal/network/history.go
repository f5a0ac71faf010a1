// Package network - history.go
// Event history endpoints: a readable export of recent game and tournament events.
package network

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
)

const defaultHistoryLimit = 50

// HistoryHandler serves the event history.
type HistoryHandler struct {
	eventLog *events.EventLog
	repo     storage.EventRepository // nil when the driver has no event table
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler. repo may be nil.
func NewHistoryHandler(el *events.EventLog, repo storage.EventRepository, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		eventLog: el,
		repo:     repo,
		logger:   log,
	}
}

// HistoryEvent is an event formatted for display.
type HistoryEvent struct {
	Seq       uint64      `json:"seq"`
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Summary   string      `json:"summary"`
	Impact    string      `json:"impact"`
	Details   interface{} `json:"details,omitempty"`
}

// HistoryResponse is the API response for GET /api/events.
type HistoryResponse struct {
	TotalEvents int            `json:"total_events"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	Origin      string         `json:"origin"` // memory or store
	GeneratedAt string         `json:"generated_at"`
	Events      []HistoryEvent `json:"events"`
}

type historyQuery struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Type      string `form:"type" binding:"omitempty,oneof=GAME_LOADED UPGRADE_PURCHASED PURCHASE_REJECTED BONUS_CLAIMED BONUS_REJECTED PROGRESS_RESET SAVE_FAILED PLAYER_JOINED BEER_DRUNK ATTEMPTS_BOUGHT ATTEMPTS_GRANTED PLAYER_STATS_RESET"`
	Persisted bool   `form:"persisted"`
}

// HandleHistory returns recent events, oldest first.
// GET /api/events?limit=N&type=BONUS_CLAIMED&persisted=true
func (hh *HistoryHandler) HandleHistory(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistoryLimit
	}

	var (
		list   []HistoryEvent
		origin = "memory"
	)
	if q.Persisted {
		if hh.repo == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "event persistence is not enabled for this storage driver"})
			return
		}
		records, err := hh.repo.Recent(c.Request.Context(), q.Limit)
		if err != nil {
			hh.logger.Errorf("Failed to read persisted events: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read event history"})
			return
		}
		origin = "store"
		for _, r := range records {
			if q.Type != "" && r.EventType != q.Type {
				continue
			}
			list = append(list, fromRecord(r))
		}
	} else {
		source := hh.eventLog.Recent(q.Limit)
		if q.Type != "" {
			source = filterType(hh.eventLog.GetByType(events.EventType(q.Type)), q.Limit)
		}
		for _, e := range source {
			list = append(list, fromEvent(e))
		}
	}

	resp := HistoryResponse{
		TotalEvents: len(list),
		Origin:      origin,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      list,
	}
	if q.Type != "" {
		resp.FilteredBy = q.Type
	}
	if resp.Events == nil {
		resp.Events = []HistoryEvent{}
	}

	hh.logger.Event("HISTORY_EXPORT", "api", "Origin:"+origin+" Events:"+strconv.Itoa(len(list)))
	c.JSON(http.StatusOK, resp)
}

// HandleStats returns aggregate counts per event type.
// GET /api/events/stats
func (hh *HistoryHandler) HandleStats(c *gin.Context) {
	all := hh.eventLog.Recent(0)

	stats := map[string]int{
		"total_events":       len(all),
		"purchases":          0,
		"purchases_rejected": 0,
		"bonuses":            0,
		"bonuses_rejected":   0,
		"resets":             0,
		"save_failures":      0,
		"drinks":             0,
	}
	var beersFromBonus, mlPoured int64
	for _, e := range all {
		switch e.Type {
		case events.EventTypeUpgradePurchased:
			stats["purchases"]++
		case events.EventTypePurchaseRejected:
			stats["purchases_rejected"]++
		case events.EventTypeBonusClaimed:
			stats["bonuses"]++
			if p, ok := e.Payload.(events.BonusClaimedPayload); ok {
				beersFromBonus += p.Amount
			}
		case events.EventTypeBonusRejected:
			stats["bonuses_rejected"]++
		case events.EventTypeProgressReset:
			stats["resets"]++
		case events.EventTypeSaveFailed:
			stats["save_failures"]++
		case events.EventTypeBeerDrunk:
			stats["drinks"]++
			if p, ok := e.Payload.(events.BeerDrunkPayload); ok {
				mlPoured += int64(p.AmountMl)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at":     time.Now().Format(time.RFC3339),
		"last_seq":         hh.eventLog.LastSeq(),
		"beers_from_bonus": beersFromBonus,
		"ml_poured":        mlPoured,
		"stats":            stats,
	})
}

func filterType(list []events.GameEvent, limit int) []events.GameEvent {
	if len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}

func fromEvent(e events.GameEvent) HistoryEvent {
	return HistoryEvent{
		Seq:       e.Seq,
		ID:        e.ID,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		Type:      string(e.Type),
		Source:    e.Source,
		Summary:   summarizeEvent(e.Type, e.Payload),
		Impact:    determineImpact(e.Type),
		Details:   e.Payload,
	}
}

func fromRecord(r storage.EventRecord) HistoryEvent {
	t := events.EventType(r.EventType)
	payload := decodePayload(t, r.Payload)
	return HistoryEvent{
		Seq:       r.Seq,
		ID:        r.ID,
		Timestamp: r.Timestamp.Format(time.RFC3339),
		Type:      r.EventType,
		Source:    r.Source,
		Summary:   summarizeEvent(t, payload),
		Impact:    determineImpact(t),
		Details:   payload,
	}
}

// decodePayload restores the typed payload of a persisted event.
func decodePayload(t events.EventType, raw []byte) interface{} {
	var target interface{}
	switch t {
	case events.EventTypeUpgradePurchased:
		target = &events.UpgradePurchasedPayload{}
	case events.EventTypePurchaseRejected:
		target = &events.PurchaseRejectedPayload{}
	case events.EventTypeBonusClaimed:
		target = &events.BonusClaimedPayload{}
	case events.EventTypeBonusRejected:
		target = &events.BonusRejectedPayload{}
	case events.EventTypeProgressReset:
		target = &events.ProgressResetPayload{}
	case events.EventTypeSaveFailed:
		target = &events.SaveFailedPayload{}
	case events.EventTypeGameLoaded:
		target = &events.GameLoadedPayload{}
	case events.EventTypePlayerJoined:
		target = &events.PlayerJoinedPayload{}
	case events.EventTypeBeerDrunk:
		target = &events.BeerDrunkPayload{}
	case events.EventTypeAttemptsBought:
		target = &events.AttemptsBoughtPayload{}
	case events.EventTypeAttemptsGranted:
		target = &events.AttemptsGrantedPayload{}
	case events.EventTypePlayerStatsReset:
		target = &events.PlayerStatsResetPayload{}
	default:
		return json.RawMessage(raw)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return json.RawMessage(raw)
	}
	return target
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(t events.EventType, payload interface{}) string {
	switch p := payload.(type) {
	case events.UpgradePurchasedPayload:
		return fmt.Sprintf("Bought %s level %d for %s beers.", p.UpgradeID, p.Level, humanize.Comma(p.Cost))
	case *events.UpgradePurchasedPayload:
		return summarizeEvent(t, *p)
	case events.PurchaseRejectedPayload:
		return fmt.Sprintf("Could not afford %s (%s of %s beers).", p.UpgradeID, humanize.Comma(p.Have), humanize.Comma(p.Cost))
	case *events.PurchaseRejectedPayload:
		return summarizeEvent(t, *p)
	case events.BonusClaimedPayload:
		return fmt.Sprintf("Claimed a %s beer bonus.", humanize.Comma(p.Amount))
	case *events.BonusClaimedPayload:
		return summarizeEvent(t, *p)
	case events.BonusRejectedPayload:
		return fmt.Sprintf("Bonus still cooling down (%s left).", p.Countdown)
	case *events.BonusRejectedPayload:
		return summarizeEvent(t, *p)
	case events.PlayerJoinedPayload:
		return fmt.Sprintf("%s joined the tournament with %d attempts.", p.Name, p.Attempts)
	case *events.PlayerJoinedPayload:
		return summarizeEvent(t, *p)
	case events.BeerDrunkPayload:
		return fmt.Sprintf("Player %d drank %d ml (%s ml total).", p.PlayerID, p.AmountMl, humanize.Comma(p.TotalMl))
	case *events.BeerDrunkPayload:
		return summarizeEvent(t, *p)
	case events.AttemptsBoughtPayload:
		return fmt.Sprintf("Player %d bought %d attempts for %d stars.", p.PlayerID, p.Attempts, p.Stars)
	case *events.AttemptsBoughtPayload:
		return summarizeEvent(t, *p)
	case events.AttemptsGrantedPayload:
		return fmt.Sprintf("Admin %d granted player %d %d attempts.", p.AdminID, p.PlayerID, p.Attempts)
	case *events.AttemptsGrantedPayload:
		return summarizeEvent(t, *p)
	case events.PlayerStatsResetPayload:
		return fmt.Sprintf("Admin %d reset player %d (%s ml dropped).", p.AdminID, p.PlayerID, humanize.Comma(p.DroppedMl))
	case *events.PlayerStatsResetPayload:
		return summarizeEvent(t, *p)
	}

	switch t {
	case events.EventTypeGameLoaded:
		return "The game was loaded."
	case events.EventTypeProgressReset:
		return "All progress was reset."
	case events.EventTypeSaveFailed:
		return "Saving the game failed."
	default:
		return "Something happened..."
	}
}

// determineImpact classifies the event impact.
func determineImpact(t events.EventType) string {
	switch t {
	case events.EventTypeUpgradePurchased, events.EventTypeBonusClaimed,
		events.EventTypeBeerDrunk, events.EventTypeAttemptsBought, events.EventTypeAttemptsGranted:
		return "POSITIVE"
	case events.EventTypePurchaseRejected, events.EventTypeBonusRejected, events.EventTypeProgressReset,
		events.EventTypeSaveFailed, events.EventTypePlayerStatsReset:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}
