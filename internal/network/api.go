package network

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

const apiPrefix = "/api"

// API exposes the game over REST and upgrades /ws to the websocket hub.
type API struct {
	game     Game
	hub      *Hub
	history  *HistoryHandler
	contest  *TournamentHandler
	metrics  *metrics.Collector
	logger   *logger.Logger
	server   config.ServerConfig
	network  config.NetworkConfig
	upgrader websocket.Upgrader
}

// NewAPI wires the HTTP surface. history may be nil to disable /api/events.
func NewAPI(game Game, hub *Hub, history *HistoryHandler, cfg config.Config, log *logger.Logger, m *metrics.Collector) *API {
	if m == nil {
		m = metrics.Get()
	}
	a := &API{
		game:    game,
		hub:     hub,
		history: history,
		metrics: m,
		logger:  log,
		server:  cfg.Server,
		network: cfg.Network,
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(a.server.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return a
}

// WithTournament mounts the tournament routes under /api/tournament.
func (a *API) WithTournament(h *TournamentHandler) *API {
	a.contest = h
	return a
}

// Router builds the gin engine with every route registered.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(a.requestLogger())
	router.Use(CORSMiddleware(a.server.AllowedOrigins))

	api := router.Group(apiPrefix)
	{
		// state
		api.GET("/state", a.getState)

		// actions
		api.POST("/click", a.click)
		api.POST("/upgrades/:id/buy", a.buy)
		api.GET("/upgrades", a.listUpgrades)

		// bonus
		api.GET("/bonus", a.getBonus)
		api.POST("/bonus/claim", a.claimBonus)

		// reset
		api.POST("/reset", a.reset)

		// history
		if a.history != nil {
			api.GET("/events", a.history.HandleHistory)
			api.GET("/events/stats", a.history.HandleStats)
		}

		// tournament
		if a.contest != nil {
			a.contest.register(api)
		}
	}

	router.GET("/metrics", gin.WrapF(a.metrics.Handler()))
	router.GET("/metrics/prometheus", gin.WrapF(a.metrics.PrometheusHandler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": a.hub.ClientCount()})
	})
	router.GET("/ws", a.serveWS)

	return router
}

func actionContext(c *gin.Context) context.Context {
	return engine.WithSource(c.Request.Context(), engine.SourceAPI)
}

func (a *API) getState(c *gin.Context) {
	c.JSON(http.StatusOK, a.game.View())
}

func (a *API) listUpgrades(c *gin.Context) {
	c.JSON(http.StatusOK, a.game.View().Upgrades)
}

func (a *API) click(c *gin.Context) {
	res, err := a.game.Click(actionContext(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) buy(c *gin.Context) {
	p, err := a.game.Buy(actionContext(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase": p, "state": a.game.View()})
}

func (a *API) getBonus(c *gin.Context) {
	c.JSON(http.StatusOK, a.game.BonusStatus())
}

func (a *API) claimBonus(c *gin.Context) {
	bonus, err := a.game.ClaimBonus(actionContext(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bonus": bonus, "state": a.game.View()})
}

type resetRequest struct {
	Confirm *bool `json:"confirm" binding:"required"`
}

func (a *API) reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm is required"})
		return
	}
	ok, err := a.game.Reset(actionContext(c), notify.Always(*req.Confirm))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": ok})
}

// fail writes the error with the status its kind maps to.
func (a *API) fail(c *gin.Context, err error) {
	code, status := errorCode(err)
	body := gin.H{"error": err.Error(), "code": code}

	var funds *economy.InsufficientFundsError
	var cooldown *economy.CooldownError
	switch {
	case errors.As(err, &funds):
		body["cost"] = funds.Cost
		body["missing"] = funds.Missing()
	case errors.As(err, &cooldown):
		body["remaining_seconds"] = cooldown.Remaining.Seconds()
		body["remaining_minutes"] = cooldown.RemainingMinutes()
	}
	if status >= http.StatusInternalServerError {
		a.logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}

func (a *API) serveWS(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.Warnf("WebSocket upgrade failed: %v", err)
		a.metrics.RecordWSError()
		return
	}
	client := NewClient(a.hub, conn, a.network.ClientSendBuffer, a.server.MaxActionsPerSecond)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/ws" {
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			a.logger.Errorf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
		}
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == origin || o == "*" {
			return true
		}
	}
	return false
}

// CORSMiddleware answers preflight requests and sets the allow headers for known origins.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originAllowed(allowed, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, "+AdminHeader)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
