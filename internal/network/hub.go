package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

// Frame types pushed to websocket clients.
const (
	FrameState        = "STATE"
	FrameNotification = "NOTIFICATION"
	FrameEvent        = "EVENT"
	FrameClick        = "CLICK_RESULT"
	FrameReset        = "RESET_RESULT"
	FrameError        = "ERROR"
)

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type outbound struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// It also implements notify.Notifier so engine notifications reach every tab.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	game       Game
	cfg        config.NetworkConfig
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub.
func NewHub(game Game, cfg config.NetworkConfig, log *logger.Logger, m *metrics.Collector) *Hub {
	if m == nil {
		m = metrics.Get()
	}
	return &Hub{
		broadcast:  make(chan []byte, cfg.BroadcastBuffer),
		direct:     make(chan outbound, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		game:       game,
		cfg:        cfg,
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
// It also pushes a STATE frame to everyone each StatePushInterval.
func (h *Hub) Run(ctx context.Context) {
	push := time.NewTicker(h.cfg.StatePushInterval)
	defer push.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			msg, ok := h.encode(Frame{Type: FrameState, Data: h.game.View()})
			h.mu.Lock()
			h.clients[client] = true
			if ok {
				h.deliver(client, msg)
			}
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case out := <-h.direct:
			h.mu.Lock()
			if h.clients[out.client] {
				h.deliver(out.client, out.message)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.fanOut(message)
		case <-push.C:
			if h.ClientCount() == 0 {
				continue
			}
			if msg, ok := h.encode(Frame{Type: FrameState, Data: h.game.View()}); ok {
				h.fanOut(msg)
			}
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.deliver(client, message)
	}
}

// deliver must be called with h.mu held.
// A client whose buffer is full is dropped.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
		h.metrics.RecordWSMessage(false)
	default:
		if h.clients[client] {
			close(client.send)
			delete(h.clients, client)
			h.metrics.RecordWSConnection(-1)
			h.metrics.RecordWSError()
			h.logger.Warn("Dropped slow WebSocket client")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) encode(f Frame) ([]byte, bool) {
	payload, err := json.Marshal(f)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s frame for WebSocket: %v", f.Type, err)
		return nil, false
	}
	return payload, true
}

// Broadcast queues a frame for every client. It never blocks; frames are
// dropped when the queue is full.
func (h *Hub) Broadcast(f Frame) {
	msg, ok := h.encode(f)
	if !ok {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping " + f.Type + " frame")
	}
}

// SendTo queues a frame for one client.
func (h *Hub) SendTo(c *Client, f Frame) {
	msg, ok := h.encode(f)
	if !ok {
		return
	}
	select {
	case h.direct <- outbound{client: c, message: msg}:
	default:
		h.logger.Warn("Direct queue full, dropping " + f.Type + " frame")
	}
}

// Notify implements notify.Notifier.
func (h *Hub) Notify(n notify.Notification) {
	h.Broadcast(Frame{Type: FrameNotification, Data: n})
}

// BroadcastEvent sends a GameEvent to all connected clients.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	h.Broadcast(Frame{Type: FrameEvent, Data: event})
}

// StartEventPoller spawns a goroutine to poll the EventLog and push new events to the Hub.
// This allows the Hub to run independently from the Engine while picking up the same events.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		pollInterval := time.NewTicker(h.cfg.EventPollInterval)
		defer pollInterval.Stop()

		lastSeq := eventLog.LastSeq()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				for _, event := range eventLog.Since(lastSeq) {
					h.BroadcastEvent(event)
					lastSeq = event.Seq
				}
			}
		}
	}()
}

var _ notify.Notifier = (*Hub)(nil)
