// Package main is the entry point for the Beer Clicker game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	"github.com/MRamiBalles/BeerClicker/server/internal/events"
	_ "github.com/MRamiBalles/BeerClicker/server/internal/infra/cache"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/network"
	"github.com/MRamiBalles/BeerClicker/server/internal/notify"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/config"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/metrics"
)

// eventPersisterAdapter translates game events to storage records.
type eventPersisterAdapter struct {
	repo    storage.EventRepository
	metrics *metrics.Collector
}

func (a *eventPersisterAdapter) Append(event events.GameEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	start := time.Now()
	err = a.repo.Append(context.Background(), storage.EventRecord{
		ID:        event.ID,
		Seq:       event.Seq,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		Source:    event.Source,
		Payload:   payload,
	})
	a.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	log.Println("[BEER-SERVER] Initializing Beer Clicker game server...")
	appLogger := logger.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.GinMode)
	m := metrics.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Infof("Opening %s storage...", cfg.Storage.Driver)
	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		appLogger.Error("Failed to open storage: " + err.Error())
		os.Exit(1)
	}
	defer backend.Close()

	appLogger.Info("Bootstrapping EventLog...")
	var persister events.EventPersister
	if backend.Events != nil {
		persister = &eventPersisterAdapter{repo: backend.Events, metrics: m}
	}
	eventLog := events.NewEventLog(cfg.Storage.EventHistory, persister)
	eventLog.OnPersistError(func(err error) {
		appLogger.Warn("Failed to persist event: " + err.Error())
	})

	// The hub needs the engine and the engine notifies through the hub.
	var hub *network.Hub
	notifier := notify.Multi{
		notify.LogNotifier{Logger: appLogger},
		notify.NotifierFunc(func(n notify.Notification) {
			if hub != nil {
				hub.Notify(n)
			}
		}),
	}

	appLogger.Info("Bootstrapping Engine...")
	gameEngine := engine.New(engine.Deps{
		Config:   cfg.Engine,
		SlotKey:  cfg.Storage.SlotKey,
		Store:    backend.Slots,
		Notifier: notifier,
		Events:   eventLog,
		Logger:   appLogger,
		Metrics:  m,
	})
	loaded := gameEngine.Load(ctx)
	switch {
	case loaded.Restored:
		appLogger.Infof("Restored save slot %q", cfg.Storage.SlotKey)
	case loaded.Recovered:
		appLogger.Warnf("Save slot %q unreadable, starting fresh", cfg.Storage.SlotKey)
	default:
		appLogger.Info("No save found, starting fresh")
	}

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub = network.NewHub(gameEngine, cfg.Network, appLogger, m)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	if err := gameEngine.Start(ctx); err != nil {
		appLogger.Error("Failed to start engine: " + err.Error())
		os.Exit(1)
	}

	history := network.NewHistoryHandler(eventLog, backend.Events, appLogger)
	api := network.NewAPI(gameEngine, hub, history, cfg, appLogger, m)
	if cfg.Tournament.Enabled {
		// A nil Contest keeps the routes mounted and answering 501.
		var contest network.Contest
		if backend.Players != nil {
			contest = engine.NewTournament(engine.TournamentDeps{
				Config:  cfg.Tournament,
				Store:   backend.Players,
				Events:  eventLog,
				Logger:  appLogger,
				Metrics: m,
			})
			appLogger.Infof("Tournament enabled (%d admins)", len(cfg.Tournament.AdminIDs))
		} else {
			appLogger.Warnf("Storage driver %s has no player store, tournament disabled", cfg.Storage.Driver)
		}
		api.WithTournament(network.NewTournamentHandler(contest, appLogger))
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("[BEER-SERVER] HTTP API & WS Server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[BEER-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[BEER-SERVER] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("HTTP shutdown: " + err.Error())
	}
	// Stop writes the final save.
	gameEngine.Stop()
	// Drain event writes before the deferred backend.Close.
	eventLog.Close()
	cancel()
}
