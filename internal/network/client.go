package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Player action types accepted over the websocket.
const (
	ActionClick      = "CLICK"
	ActionBuy        = "BUY"
	ActionClaimBonus = "CLAIM_BONUS"
	ActionReset      = "RESET"
	ActionSync       = "SYNC"
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type    string          `json:"type"`    // CLICK, BUY, CLAIM_BONUS, RESET, SYNC
	Payload json.RawMessage `json:"payload"` // Action-specific data
}

// BuyPayload is the payload of BUY.
type BuyPayload struct {
	UpgradeID string `json:"upgrade_id"`
}

// ResetPayload is the payload of RESET. Confirm must be true for the reset to happen.
type ResetPayload struct {
	Confirm bool `json:"confirm"`
}

// ErrorData is the body of an ERROR frame.
type ErrorData struct {
	Action  string `json:"action"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client holds one websocket connection. Only the hub closes send.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	maxPerSecond int
	windowStart  time.Time
	windowCount  int
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, sendBuffer, maxActionsPerSecond int) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		maxPerSecond: maxActionsPerSecond,
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps messages from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warnf("WebSocket read error: %v", err)
				c.hub.metrics.RecordWSError()
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			c.reply(Frame{Type: FrameError, Data: ErrorData{Code: "bad_request", Message: "malformed action"}})
			continue
		}

		c.handlePlayerAction(action, time.Now())
	}
}

// allow applies the per-connection fixed-window rate limit.
func (c *Client) allow(now time.Time) bool {
	if c.maxPerSecond <= 0 {
		return true
	}
	if now.Sub(c.windowStart) >= time.Second {
		c.windowStart = now
		c.windowCount = 0
	}
	if c.windowCount >= c.maxPerSecond {
		return false
	}
	c.windowCount++
	return true
}

func (c *Client) reply(f Frame) {
	c.hub.SendTo(c, f)
}

func (c *Client) handlePlayerAction(action PlayerAction, now time.Time) {
	// 1. Rate Limiting Check
	if !c.allow(now) {
		c.hub.metrics.RecordWSRateLimited()
		return
	}

	ctx := engine.WithSource(context.Background(), engine.SourceWS)
	game := c.hub.game

	switch action.Type {
	case ActionClick:
		res, err := game.Click(ctx)
		if err != nil {
			c.replyError(action.Type, err)
			return
		}
		c.reply(Frame{Type: FrameClick, Data: res})
	case ActionBuy:
		var p BuyPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil || p.UpgradeID == "" {
			c.reply(Frame{Type: FrameError, Data: ErrorData{Action: action.Type, Code: "bad_request", Message: "upgrade_id is required"}})
			return
		}
		if _, err := game.Buy(ctx, p.UpgradeID); err != nil {
			c.replyError(action.Type, err)
			return
		}
		c.reply(Frame{Type: FrameState, Data: game.View()})
	case ActionClaimBonus:
		if _, err := game.ClaimBonus(ctx); err != nil {
			c.replyError(action.Type, err)
			return
		}
		c.reply(Frame{Type: FrameState, Data: game.View()})
	case ActionReset:
		var p ResetPayload
		if len(action.Payload) > 0 {
			if err := json.Unmarshal(action.Payload, &p); err != nil {
				c.reply(Frame{Type: FrameError, Data: ErrorData{Action: action.Type, Code: "bad_request", Message: "malformed reset payload"}})
				return
			}
		}
		ok, err := game.Reset(ctx, notify.Always(p.Confirm))
		if err != nil {
			c.replyError(action.Type, err)
			return
		}
		c.reply(Frame{Type: FrameReset, Data: map[string]bool{"reset": ok}})
		if ok {
			c.reply(Frame{Type: FrameState, Data: game.View()})
		}
	case ActionSync:
		c.reply(Frame{Type: FrameState, Data: game.View()})
	default:
		c.hub.logger.Warn("Unknown PlayerAction type: " + action.Type)
		c.reply(Frame{Type: FrameError, Data: ErrorData{Action: action.Type, Code: "unknown_action", Message: "unknown action type"}})
	}
}

func (c *Client) replyError(action string, err error) {
	code, _ := errorCode(err)
	c.reply(Frame{Type: FrameError, Data: ErrorData{Action: action, Code: code, Message: err.Error()}})
}

// errorCode maps engine errors to a stable code and an HTTP status.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, economy.ErrInsufficientFunds):
		return "insufficient_funds", http.StatusPaymentRequired
	case errors.Is(err, economy.ErrCooldownActive):
		return "cooldown_active", http.StatusTooManyRequests
	case errors.Is(err, economy.ErrUnknownUpgrade):
		return "unknown_upgrade", http.StatusNotFound
	case errors.Is(err, economy.ErrUpgradeMaxed):
		return "upgrade_maxed", http.StatusConflict
	case errors.Is(err, tournament.ErrNoAttempts):
		return "no_attempts", http.StatusPaymentRequired
	case errors.Is(err, storage.ErrPlayerNotFound):
		return "player_not_found", http.StatusNotFound
	case errors.Is(err, tournament.ErrUnknownPack):
		return "unknown_pack", http.StatusNotFound
	case errors.Is(err, tournament.ErrNotAdmin):
		return "not_admin", http.StatusForbidden
	case errors.Is(err, tournament.ErrInvalidGrant):
		return "invalid", http.StatusBadRequest
	case errors.Is(err, engine.ErrEngineStopped):
		return "engine_stopped", http.StatusServiceUnavailable
	default:
		return "internal", http.StatusInternalServerError
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per websocket message; clients parse each as JSON.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
